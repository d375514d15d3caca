package dbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutErrorMessage(t *testing.T) {
	err := &TimeoutError{Phase: "halt"}
	assert.Contains(t, err.Error(), "halt")
}

func TestCauseMismatchErrorMessage(t *testing.T) {
	err := &CauseMismatchError{Op: "single step", Expected: stepCause, Got: continueCause}
	assert.Contains(t, err.Error(), "single step")
	assert.Contains(t, err.Error(), "0x4")
	assert.Contains(t, err.Error(), "0x1")
}

func TestDcsrCauseFieldExtraction(t *testing.T) {
	dcsrVal := uint32(stepCause) << 6
	assert.Equal(t, uint32(stepCause), (dcsrVal&dcsrCause)>>6)
}

func TestAbstractReadRegCommandEncoding(t *testing.T) {
	// 0x00320000 | regAddr is the read-register abstract command
	// encoding (rfpc_debugger.rs's abstract_cmd_read_reg).
	const regAddr = 0x1005
	command := 0x00320000 | uint32(regAddr&0xFFFF)
	assert.Equal(t, uint32(0x00321005), command)
}
