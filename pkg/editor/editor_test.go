package editor

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/logger"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

type recorder struct {
	commands []Command
}

func (r *recorder) Send(cmd Command) {
	r.commands = append(r.commands, cmd)
}

func newGraph(t *testing.T) (*scene.Graph, scene.Handle, *scene.ParticleSystem) {
	t.Helper()
	g := scene.NewGraph()
	ps := scene.NewParticleSystem("smoke")
	ps.AddEmitter(scene.NewSphereEmitter(1))
	return g, g.Add(ps), ps
}

func TestHandleMapsChangesToCommands(t *testing.T) {
	h := NewParticleSystemHandler(logger.NewWriterLogger("debug", &bytes.Buffer{}))
	tex, err := scene.NewTexture("smoke.png", 1, 1, gpu.PixelRGBA8, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	tests := []struct {
		change PropertyChange
		want   Command
	}{
		{TextureChanged{Texture: tex}, &SetParticleSystemTexture{}},
		{AccelerationChanged{Acceleration: mgl32.Vec3{0, -9.8, 0}}, &SetParticleSystemAcceleration{}},
		{EnabledChanged{Enabled: false}, &SetParticleSystemEnabled{}},
		{SoftBoundaryFactorChanged{Factor: 20}, &SetSoftBoundarySharpnessFactor{}},
		{EmitterRemoved{Index: 0}, &DeleteEmitter{}},
	}
	for _, tt := range tests {
		var r recorder
		require.NoError(t, h.Handle(3, tt.change, &r))
		require.Len(t, r.commands, 1)
		assert.IsType(t, tt.want, r.commands[0])
	}
}

func TestHandleIgnoresEmitterEdits(t *testing.T) {
	h := NewParticleSystemHandler(logger.NewWriterLogger("debug", &bytes.Buffer{}))
	var r recorder
	require.NoError(t, h.Handle(1, EmitterChanged{Index: 0}, &r))
	assert.Empty(t, r.commands)
}

func TestHandleRejectsNilChange(t *testing.T) {
	var buf bytes.Buffer
	h := NewParticleSystemHandler(logger.NewWriterLogger("debug", &buf))
	var r recorder
	assert.Error(t, h.Handle(1, nil, &r))
	assert.Empty(t, r.commands)
	assert.Contains(t, buf.String(), "Unhandled property change")
}

func TestEmitterSelectorFlow(t *testing.T) {
	g, node, ps := newGraph(t)
	h := NewParticleSystemHandler(logger.NewWriterLogger("debug", &bytes.Buffer{}))
	var r recorder

	assert.Error(t, h.SelectEmitter(scene.EmitterCuboid, &r), "nothing pending")

	require.NoError(t, h.Handle(node, EmitterAdded{}, &r))
	assert.Empty(t, r.commands, "adding waits for a shape")
	assert.True(t, h.SelectorOpen())

	require.NoError(t, h.SelectEmitter(scene.EmitterCylinder, &r))
	assert.False(t, h.SelectorOpen())
	require.Len(t, r.commands, 1)

	cmd := r.commands[0]
	require.NoError(t, cmd.Execute(g))
	emitters := ps.Emitters()
	require.Len(t, emitters, 2)
	assert.Equal(t, scene.EmitterCylinder, emitters[1].Kind())

	require.NoError(t, cmd.Revert(g))
	assert.Len(t, ps.Emitters(), 1)
}

func TestCloseSelectorDiscardsPendingAdd(t *testing.T) {
	h := NewParticleSystemHandler(nil)
	var r recorder
	require.NoError(t, h.Handle(2, EmitterAdded{}, &r))
	h.CloseSelector()
	assert.Error(t, h.SelectEmitter(scene.EmitterSphere, &r))
	assert.Empty(t, r.commands)
}

func TestNewEmitter(t *testing.T) {
	for _, kind := range scene.EmitterKinds {
		e, err := NewEmitter(kind)
		require.NoError(t, err, kind.String())
		assert.Equal(t, kind, e.Kind())
	}
	_, err := NewEmitter(scene.EmitterKind(42))
	assert.Error(t, err)
}

func TestSwapCommandsExecuteAndRevert(t *testing.T) {
	g, node, ps := newGraph(t)
	tex, err := scene.NewTexture("smoke.png", 1, 1, gpu.PixelRGBA8, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	ps.SetSoftBoundarySharpnessFactor(5)

	commands := []Command{
		NewSetParticleSystemTexture(node, tex),
		NewSetParticleSystemAcceleration(node, mgl32.Vec3{1, 2, 3}),
		NewSetParticleSystemEnabled(node, false),
		NewSetSoftBoundarySharpnessFactor(node, 40),
	}
	for _, cmd := range commands {
		require.NoError(t, cmd.Execute(g), cmd.Name())
	}
	assert.Same(t, tex, ps.Texture())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, ps.Acceleration())
	assert.False(t, ps.Enabled())
	assert.Equal(t, float32(40), ps.SoftBoundarySharpnessFactor())

	for i := len(commands) - 1; i >= 0; i-- {
		require.NoError(t, commands[i].Revert(g), commands[i].Name())
	}
	assert.Nil(t, ps.Texture())
	assert.Equal(t, mgl32.Vec3{0, -9.81, 0}, ps.Acceleration())
	assert.True(t, ps.Enabled())
	assert.Equal(t, float32(5), ps.SoftBoundarySharpnessFactor())

	// redo after undo
	require.NoError(t, commands[3].Execute(g))
	assert.Equal(t, float32(40), ps.SoftBoundarySharpnessFactor())
}

func TestDeleteEmitterRestoresPosition(t *testing.T) {
	g, node, ps := newGraph(t)
	ps.AddEmitter(scene.NewCuboidEmitter(mgl32.Vec3{1, 1, 1}))
	ps.AddEmitter(scene.NewCylinderEmitter(1, 2))
	middle := ps.Emitters()[1]

	cmd := NewDeleteEmitter(node, 1)
	assert.Error(t, cmd.Revert(g), "not executed yet")
	require.NoError(t, cmd.Execute(g))
	require.Len(t, ps.Emitters(), 2)
	assert.Equal(t, scene.EmitterCylinder, ps.Emitters()[1].Kind())

	require.NoError(t, cmd.Revert(g))
	require.Len(t, ps.Emitters(), 3)
	assert.Same(t, middle, ps.Emitters()[1])

	assert.Error(t, NewDeleteEmitter(node, 7).Execute(g))
}

func TestCommandsRejectOtherNodes(t *testing.T) {
	g := scene.NewGraph()
	camera := g.Add(scene.NewCamera("camera"))

	assert.Error(t, NewSetParticleSystemEnabled(camera, false).Execute(g))
	assert.Error(t, NewAddParticleSystemEmitter(camera, scene.NewSphereEmitter(1)).Execute(g))
	assert.Error(t, NewDeleteEmitter(scene.Handle(99), 0).Execute(g))
}

func TestExecutorAppliesAndLogs(t *testing.T) {
	g, node, ps := newGraph(t)
	var buf bytes.Buffer
	exec := &Executor{Graph: g, Log: logger.NewWriterLogger("debug", &buf)}
	h := NewParticleSystemHandler(exec.Log)

	require.NoError(t, h.Handle(node, EnabledChanged{Enabled: false}, exec))
	assert.False(t, ps.Enabled())
	assert.Contains(t, buf.String(), "Set Particle System Enabled")

	require.NoError(t, h.Handle(node, EmitterRemoved{Index: 5}, exec))
	assert.Contains(t, buf.String(), "failed")

	var sent []string
	f := SenderFunc(func(cmd Command) { sent = append(sent, cmd.Name()) })
	require.NoError(t, h.Handle(node, AccelerationChanged{}, f))
	assert.Equal(t, []string{"Set Particle System Acceleration"}, sent)
}
