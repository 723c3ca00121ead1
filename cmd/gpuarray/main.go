// Package main provides the gpuarray CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/born-ml/gpuarray/device"
	_ "github.com/born-ml/gpuarray/device/default"
	"github.com/born-ml/gpuarray/device/webgpu"
	"github.com/born-ml/gpuarray/tensor"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

var (
	flagDevice = flag.String("device", "", `device configuration "<name>:<options>", defaults to $GPUARRAY_DEVICE or "webgpu"`)

	titleStyle = lipgloss.NewStyle().Bold(true)
)

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintln(out, titleStyle.Render("gpuarray "+version)+" - GPU-resident tensors for Go")
	_, _ = fmt.Fprintln(out, "\nUsage: gpuarray [flags] <command> [arguments]")
	_, _ = fmt.Fprintln(out, "\nCommands:")
	_, _ = fmt.Fprintln(out, "  version    Show version")
	_, _ = fmt.Fprintln(out, "  devices    List the registered devices")
	_, _ = fmt.Fprintln(out, "  kernels    List the kernels provided by the selected device")
	_, _ = fmt.Fprintln(out, "  run        Run one operation on tensors of a safetensors file, see 'gpuarray run -h'")
	_, _ = fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "version":
		fmt.Printf("gpuarray %s\n", version)
	case "devices":
		err = listDevices()
	case "kernels":
		err = listKernels()
	case "run":
		err = run(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func newTable(headers ...string) *lgtable.Table {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func newContext() (*tensor.Context, error) {
	return tensor.NewContext(tensor.Config{Device: *flagDevice, Label: "cli"})
}

func listDevices() error {
	table := newTable("Device", "Status")
	for _, name := range device.Registered() {
		status := "available"
		if name == "webgpu" && !webgpu.IsAvailable() {
			status = "unavailable"
		}
		table.Row(name, status)
	}
	fmt.Println(table.Render())
	return nil
}

func listKernels() error {
	ctx, err := newContext()
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Release() }()

	names := ctx.Kernels().Names()
	slices.Sort(names)
	table := newTable("Kernel")
	for _, name := range names {
		table.Row(name)
	}
	fmt.Println(titleStyle.Render(ctx.Device().Description()))
	fmt.Println(table.Render())
	fmt.Printf("%d kernels\n", len(names))
	return nil
}
