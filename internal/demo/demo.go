// Package demo is a small scene driven entirely by registry values: a disk
// pulled back to the center by a spring while a noise field pushes it
// around, plus a container of particle emitters and a reference to the one
// the camera follows.
package demo

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/specialistvlad/livebag/internal/dynamic"
	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/value"
)

// EmittersContainer is the document name of the emitter container.
const EmittersContainer = "emitters"

// Emitter is a dynamic object declared in the document.
type Emitter struct {
	Kind   string
	Name   string
	Rate   float64
	Closed bool
}

// Close marks the emitter as destroyed.
func (e *Emitter) Close() error {
	e.Closed = true
	return nil
}

// Disk is the simulated body.
type Disk struct {
	Radius *value.Value[float64]
	Color  *value.Value[value.Color]
	Pos    value.Vec2
	Vel    value.Vec2
}

// Scene holds every value the simulation reads.
type Scene struct {
	Disk Disk

	Scale     *value.Value[float64]
	Amplitude *value.Value[float64]
	Speed     *value.Value[float64]
	Friction  *value.Value[float64]
	SpringK   *value.Value[float64]

	Emitters *dynamic.Container[*Emitter]
	Focus    *dynamic.Reference[*Emitter]

	Center  value.Vec2
	elapsed time.Duration
}

// EmitterFactories returns the constructors for the emitter types.
func EmitterFactories() *dynamic.Factories[*Emitter] {
	f := dynamic.NewFactories[*Emitter]()
	f.Register("spark", func(name string) (*Emitter, error) {
		return &Emitter{Kind: "spark", Name: name, Rate: 120}, nil
	})
	f.Register("smoke", func(name string) (*Emitter, error) {
		return &Emitter{Kind: "smoke", Name: name, Rate: 15}, nil
	})
	return f
}

// NewScene registers the scene's values and containers in reg.
func NewScene(reg *registry.Registry, logger *slog.Logger, width, height float64) (*Scene, error) {
	center := value.Vec2{X: width / 2, Y: height / 2}

	s := &Scene{
		Disk: Disk{
			Radius: value.NewFloat(reg, "radius", "disk", 0, value.WithBounds(0, 500), value.WithUpdateFn(func() {
				logger.Info("Updated disk radius!")
			})),
			Color: value.NewColor(reg, "color", "disk", value.Color{}),
			Pos:   center,
		},
		Scale:     value.NewFloat(reg, "scale", "perlin", 0.001, value.WithBounds(0, 0.1)),
		Amplitude: value.NewFloat(reg, "amplitude", "perlin", 0.5),
		Speed:     value.NewFloat(reg, "speed", "perlin", 1),
		Friction:  value.NewFloat(reg, "friction", "", 0.949999988),
		SpringK:   value.NewFloat(reg, "springk", "", 0.0025),
		Emitters:  dynamic.NewFactory(EmitterFactories(), dynamic.WithName(EmittersContainer), dynamic.WithLogger(logger)),
		Center:    center,
	}

	reg.AddContainer(EmittersContainer, s.Emitters)
	s.Focus = dynamic.NewReference(s.Emitters, "")
	if err := s.Focus.Bind(reg, "focus", "camera"); err != nil {
		return nil, fmt.Errorf("failed to bind focus reference: %w", err)
	}
	return s, nil
}

// Update advances the simulation by dt.
func (s *Scene) Update(dt time.Duration) {
	s.elapsed += dt
	t := s.elapsed.Seconds()

	scale := s.Scale.Get()
	n := flow(scale*s.Disk.Pos.X, scale*s.Disk.Pos.Y, s.Speed.Get()*t)
	amp := s.Amplitude.Get()
	k := s.SpringK.Get()

	s.Disk.Vel.X += amp*n.X + k*(s.Center.X-s.Disk.Pos.X)
	s.Disk.Vel.Y += amp*n.Y + k*(s.Center.Y-s.Disk.Pos.Y)

	f := s.Friction.Get()
	s.Disk.Vel.X *= f
	s.Disk.Vel.Y *= f

	s.Disk.Pos.X += s.Disk.Vel.X
	s.Disk.Pos.Y += s.Disk.Vel.Y
}

// Reset puts the disk back at the center.
func (s *Scene) Reset() {
	s.Disk.Pos = s.Center
	s.Disk.Vel = value.Vec2{}
}

// Close unregisters the scene.
func (s *Scene) Close() error {
	for _, c := range []interface{ Close() error }{
		s.Disk.Radius, s.Disk.Color, s.Scale, s.Amplitude, s.Speed, s.Friction, s.SpringK, s.Focus,
	} {
		if err := c.Close(); err != nil {
			return err
		}
	}
	s.Emitters.Clear()
	return nil
}

// flow is a smooth, divergence-free 2D field varying over time z.
func flow(x, y, z float64) value.Vec2 {
	// Curl of psi = sin(x+z)*cos(y-z) + 0.5*sin(2y+z)*cos(2x).
	dPsiDy := -math.Sin(x+z)*math.Sin(y-z) + math.Cos(2*y+z)*math.Cos(2*x)
	dPsiDx := math.Cos(x+z)*math.Cos(y-z) - math.Sin(2*y+z)*math.Sin(2*x)
	return value.Vec2{X: dPsiDy, Y: -dPsiDx}
}
