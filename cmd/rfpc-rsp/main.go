// Command rfpc-rsp wires an expansion-window transport, an RFPC hart
// identity, and the Debug Module driver into a running GDB Remote
// Serial Protocol server, matching the CLI surface spec.md §6
// assigns to the bridge binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/corigine/rfpc-rsp-bridge/pkg/dbg"
	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
	"github.com/corigine/rfpc-rsp-bridge/pkg/rsp"
	"github.com/corigine/rfpc-rsp-bridge/pkg/xpb"
)

var (
	flagPciBDF  string
	flagIsland  string
	flagCluster uint
	flagGroup   uint
	flagCore    uint
)

var islandsByName = map[string]xpb.CppIsland{
	"local":  xpb.Local,
	"rfpc0":  xpb.Rfpc0,
	"rfpc1":  xpb.Rfpc1,
	"rfpc2":  xpb.Rfpc2,
	"rfpc3":  xpb.Rfpc3,
	"rfpc4":  xpb.Rfpc4,
	"rfpc5":  xpb.Rfpc5,
	"rfpc6":  xpb.Rfpc6,
	"rfpc7":  xpb.Rfpc7,
	"pcie0":  xpb.Pcie0,
	"pcie1":  xpb.Pcie1,
	"pcie2":  xpb.Pcie2,
	"pcie3":  xpb.Pcie3,
	"arm":    xpb.Arm,
	"crypto": xpb.Crypto,
	"nbi0":   xpb.Nbi0,
	"nbi1":   xpb.Nbi1,
}

func main() {
	flag.StringVar(&flagPciBDF, "pci-bdf", "", "PCIe bus:device.function of the target NFP")
	flag.StringVar(&flagIsland, "island", "rfpc0", "CPP island the target hart lives on")
	flag.UintVar(&flagCluster, "cluster", 0, "RFPC cluster index")
	flag.UintVar(&flagGroup, "group", 0, "RFPC group index within the cluster")
	flag.UintVar(&flagCore, "core", 0, "RFPC core index within the group")
	flag.Parse()

	if flagPciBDF == "" {
		fmt.Fprintln(os.Stderr, "error: --pci-bdf is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	island, ok := islandsByName[flagIsland]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown island %q\n", flagIsland)
		flag.PrintDefaults()
		os.Exit(1)
	}

	bdf, err := xpb.ValidateNfpBDF(flagPciBDF)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	win, err := xpb.NewExpBar(bdf, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer win.Close()

	explBar, err := xpb.NewExplicitBar(bdf, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer explBar.Close()

	core := rfpc.Rfpc{
		Island:  island,
		Cluster: uint8(flagCluster),
		Group:   uint8(flagGroup),
		Core:    uint8(flagCore),
	}
	dm := &dbg.DM{Win: win, Core: core}

	server := rsp.New(win, explBar, core, dm)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("rfpc-rsp: listening on %s for %s\n", rsp.Addr, flagIsland)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
