package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"twinreg/pkg/asm"
	"twinreg/pkg/compiler"
	"twinreg/pkg/cpu"
)

const (
	screenWidth  = 640
	screenHeight = 480
	lineHeight   = 14
	listingRows  = 28
	stepsPerTick = 2000
	dataRows     = 12
)

var (
	highlight = color.RGBA{0x30, 0x50, 0x90, 0xff}
	textColor = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
)

// Game steps a compiled program on the CPU and shows the assembly listing
// around the program counter next to the machine state.
type Game struct {
	vm      *cpu.CPU
	prog    *asm.Program
	listing []string
	face    text.Face
	running bool
}

func newGame(res *compiler.Result) (*Game, error) {
	g := &Game{
		vm:      cpu.NewCPU(),
		prog:    res.Program,
		listing: strings.Split(res.Assembly, "\n"),
		face:    text.NewGoXFace(basicfont.Face7x13),
	}
	return g, g.reset()
}

func (g *Game) reset() error {
	g.running = false
	return g.vm.Load(g.prog.Words)
}

func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		return g.reset()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.running = !g.running
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.running = false
		g.vm.Step()
	}

	if g.running {
		for i := 0; i < stepsPerTick && !g.vm.Halted; i++ {
			g.vm.Step()
		}
		if g.vm.Halted {
			g.running = false
		}
	}
	return nil
}

// currentLine returns the 0-based listing line of the instruction at pc, or
// -1 if pc is not the start of an instruction.
func currentLine(prog *asm.Program, pc uint16) int {
	line, ok := prog.SourceMap[pc]
	if !ok {
		return -1
	}
	return line - 1
}

// listingWindow picks rows lines of the listing centred on current.
func listingWindow(total, current, rows int) (start, end int) {
	start = current - rows/2
	if start > total-rows {
		start = total - rows
	}
	if start < 0 {
		start = 0
	}
	end = start + rows
	if end > total {
		end = total
	}
	return start, end
}

func formatState(vm *cpu.CPU) []string {
	state := "running"
	if vm.Halted {
		state = "halted"
	}
	return []string{
		fmt.Sprintf("A   %04X  %6d", vm.A, vm.Signed()),
		fmt.Sprintf("B   %04X  %6d", vm.B, int16(vm.B)),
		fmt.Sprintf("PC  %04X", vm.PC),
		fmt.Sprintf("Z=%t C=%t", vm.Z, vm.C),
		fmt.Sprintf("call depth %d", len(vm.CallStack)),
		fmt.Sprintf("steps %d (%s)", vm.Steps, state),
		"",
		"space: step  R: run/pause",
		"backspace: reset",
	}
}

// dataWords lists the first words of the globals frame.
func dataWords(prog *asm.Program, vm *cpu.CPU, n int) []string {
	base, ok := prog.Labels["globals"]
	if !ok {
		return nil
	}
	lines := []string{"globals"}
	for i := 0; i < n && int(base)+i < len(vm.Memory); i++ {
		w := vm.Memory[int(base)+i]
		lines = append(lines, fmt.Sprintf("  +%-2d %04X %6d", i, w, int16(w)))
	}
	return lines
}

func (g *Game) drawLine(screen *ebiten.Image, s string, x, y int) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Draw(screen *ebiten.Image) {
	current := currentLine(g.prog, g.vm.PC)
	start, end := listingWindow(len(g.listing), current, listingRows)
	for i := start; i < end; i++ {
		y := 8 + (i-start)*lineHeight
		if i == current {
			bar := ebiten.NewImage(400, lineHeight)
			bar.Fill(highlight)
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(0, float64(y))
			screen.DrawImage(bar, op)
		}
		g.drawLine(screen, strings.ReplaceAll(g.listing[i], "\t", "    "), 8, y)
	}

	state := formatState(g.vm)
	for i, s := range state {
		g.drawLine(screen, s, 420, 8+i*lineHeight)
	}
	for i, s := range dataWords(g.prog, g.vm, dataRows) {
		g.drawLine(screen, s, 420, 8+(len(state)+1+i)*lineHeight)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	noOpt := flag.Bool("no-opt", false, "disable constant folding and dead-branch elimination")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [-no-opt] program.src")
		os.Exit(2)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	res, err := compiler.Compile(string(source), compiler.Options{Optimize: !*noOpt})
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	game, err := newGame(res)
	if err != nil {
		log.Fatalf("Loading program failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("twinreg")
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
