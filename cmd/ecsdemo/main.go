// Command ecsdemo hosts a world under ebiten's game loop purely as a tick
// source: ebiten's Update/Draw calls drive World.Step across the fixed-
// update, variable-update and render timelines, and the only thing drawn
// is a debug readout of live entity/family counts. Rendering, audio and
// physics are out of scope for this runtime (see SPEC_FULL.md's carried-
// forward Non-goals); ebiten is wired here only because it is the
// teacher's own game-loop host (internal/core/game.go), not to build a
// renderer.
package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/totodo713/ecsforge/internal/ecs"
	"github.com/totodo713/ecsforge/internal/ecs/config"
)

type demoPosition struct {
	idx  ecs.ComponentIndex
	X, Y float64
}

func (c *demoPosition) ComponentIndex() ecs.ComponentIndex { return c.idx }
func (c *demoPosition) Serialize() ([]byte, error)         { return nil, nil }
func (c *demoPosition) Deserialize([]byte) error            { return nil }

const posIndex ecs.ComponentIndex = 0

type driftSystem struct{}

func (driftSystem) Name() string               { return "drift" }
func (driftSystem) Timeline() ecs.Timeline      { return ecs.TimelineFixedUpdate }
func (driftSystem) Strategy() ecs.Strategy      { return ecs.StrategyIndividual }
func (driftSystem) FamilyName() string         { return "withPosition" }
func (driftSystem) Access() []ecs.ComponentAccess {
	return []ecs.ComponentAccess{{Index: posIndex, Mode: ecs.AccessWrite}}
}
func (driftSystem) UpdateRow(dt float64, row interface{}) error {
	pos := row.(*demoPosition)
	pos.X += dt * 10
	return nil
}

// game adapts World.Step to ebiten's Game interface: Update runs the
// fixed-update timeline at a fixed accumulator step, then variable-update
// once per frame; Draw runs the render timeline and prints a debug
// readout.
type game struct {
	world     *ecs.World
	cfg       config.WorldConfig
	accum     time.Duration
	lastFrame time.Time
}

func newGame(world *ecs.World, cfg config.WorldConfig) *game {
	return &game{world: world, cfg: cfg, lastFrame: time.Now()}
}

func (g *game) Update() error {
	now := time.Now()
	frameDt := now.Sub(g.lastFrame)
	g.lastFrame = now
	g.accum += frameDt

	step := g.cfg.FixedUpdateInterval()
	for g.accum >= step {
		if err := g.world.Step(context.Background(), ecs.TimelineFixedUpdate, step.Seconds()); err != nil {
			return err
		}
		if err := g.world.Refresh(); err != nil {
			return err
		}
		g.accum -= step
	}

	return g.world.Step(context.Background(), ecs.TimelineVariableUpdate, frameDt.Seconds())
}

func (g *game) Draw(screen *ebiten.Image) {
	_ = g.world.Step(context.Background(), ecs.TimelineRender, 0)
	screen.Fill(color.RGBA{20, 20, 30, 255})
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"entities: %d\nmove rows: %d",
		g.world.Table.NumEntities(),
		len(g.world.Families.Rows("withPosition")),
	))
}

func (g *game) Layout(_, _ int) (int, int) {
	return 1280, 720
}

func main() {
	cfg := config.DefaultWorldConfig()

	world := ecs.NewWorld(ecs.NopTransport{})
	if err := world.RegisterFamily("withPosition", []ecs.ComponentIndex{posIndex}, nil, func(e *ecs.Entity) (interface{}, bool) {
		c, err := e.GetComponent(posIndex)
		if err != nil {
			return nil, false
		}
		return c.(*demoPosition), true
	}); err != nil {
		log.Fatal(err)
	}

	if err := world.RegisterSystem(driftSystem{}); err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 16; i++ {
		id, err := world.CreateEntity()
		if err != nil {
			log.Fatal(err)
		}
		if err := world.AddComponent(id, posIndex, &demoPosition{idx: posIndex}); err != nil {
			log.Fatal(err)
		}
	}
	if err := world.Refresh(); err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle("ecsforge demo")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(newGame(world, cfg)); err != nil {
		log.Fatal(err)
	}
}
