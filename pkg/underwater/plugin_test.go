package underwater

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/underwater/internal/config"
	"github.com/OCAP2/underwater/internal/dispatcher"
	"github.com/OCAP2/underwater/internal/handlers"
	"github.com/OCAP2/underwater/internal/hosttest"
	"github.com/OCAP2/underwater/internal/storage"
	"github.com/OCAP2/underwater/pkg/core"
	"github.com/OCAP2/underwater/pkg/host"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0644))
}

// setupDir writes ambient settings pointing every file into a temp dir and a
// vehicle configuration enabling ModularCar with the given multiplier.
func setupDir(t *testing.T, storageType string, mult float32) string {
	t.Helper()
	return setupDirWith(t, storageType, mult, nil)
}

func setupDirWith(t *testing.T, storageType string, mult float32, extra map[string]any) string {
	t.Helper()
	dir := t.TempDir()

	settings := map[string]any{
		"logLevel":         "debug",
		"logsDir":          filepath.Join(dir, "logs"),
		"pluginConfigFile": filepath.Join(dir, "UnderwaterVehicles.json"),
		"storage": map[string]any{
			"type":   storageType,
			"sqlite": map[string]any{"path": filepath.Join(dir, "journal.db")},
		},
	}
	for k, v := range extra {
		settings[k] = v
	}
	writeJSON(t, filepath.Join(dir, config.FileName), settings)
	writeJSON(t, filepath.Join(dir, "UnderwaterVehicles.json"), map[string]any{
		"ModularCar": map[string]any{"Enabled": true, "DragMultiplier": mult},
	})
	return dir
}

func newTestPlugin(t *testing.T, dir string, vehicles ...host.Vehicle) (*Plugin, *hosttest.Hooks) {
	t.Helper()
	t.Cleanup(viper.Reset)
	hooks := hosttest.NewHooks()
	p, err := New(Options{
		ConfigDir: dir,
		World:     &hosttest.World{List: vehicles},
		Hooks:     hooks,
	})
	require.NoError(t, err)
	t.Cleanup(p.Unload)
	return p, hooks
}

func TestNewRequiresWorld(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestPluginLifecycle(t *testing.T) {
	dir := setupDir(t, "memory", 2)

	car := hosttest.NewVehicle(1, "ModularCar")
	car.Occupants = 1
	car.Water = 1
	car.Throttle = 1
	heli := hosttest.NewHelicopter(2, "Minicopter")

	p, hooks := newTestPlugin(t, dir, car, heli)

	assert.True(t, p.Config().ModularCar.Enabled)
	assert.False(t, p.Config().Minicopter.Enabled)
	assert.FileExists(t, p.LogFilePath())

	p.OnServerInitialized(true)

	assert.True(t, hooks.Subscribed[host.HookEntityMounted])
	assert.Nil(t, car.Sample.ParentNode())

	st := p.Status()
	assert.Equal(t, 1, st.AdaptersAttached)
	assert.Equal(t, 1, st.CorrectionsActive)

	p.Tick(500 * time.Millisecond)
	assert.Positive(t, car.RigidBody.DragWrites)

	car.Occupants = 0
	p.OnEntityDismounted(car)
	assert.Equal(t, 0, p.Status().CorrectionsActive)

	p.OnEntityKill(car)
	assert.Equal(t, 0, p.Status().AdaptersAttached)
	assert.Same(t, car.Root, car.Sample.ParentNode())

	events, err := p.Journal().LifecycleEvents(1, 10)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, core.EventDetached, events[0].Type)
	assert.Equal(t, core.EventAttached, events[3].Type)
}

func TestPluginDispatch(t *testing.T) {
	dir := setupDir(t, "memory", 3)
	p, _ := newTestPlugin(t, dir)

	_, err := p.Dispatch(dispatcher.Event{Command: handlers.CmdInit})
	require.NoError(t, err)
	assert.True(t, p.monitor.IsRunning())

	car := hosttest.NewVehicle(5, "ModularCar")
	_, err = p.Dispatch(dispatcher.Event{Command: handlers.CmdSpawned, Vehicle: car})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Status().AdaptersAttached)

	car.Occupants = 1
	_, err = p.Dispatch(dispatcher.Event{Command: handlers.CmdMounted, Vehicle: car})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Status().CorrectionsActive)

	_, err = p.Dispatch(dispatcher.Event{Command: handlers.CmdUnload})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Status().AdaptersAttached)
	assert.True(t, p.unloaded)
	assert.False(t, p.monitor.IsRunning())
}

func TestPluginReloadConfig(t *testing.T) {
	dir := setupDir(t, "memory", 2)
	car := hosttest.NewVehicle(1, "ModularCar")
	p, hooks := newTestPlugin(t, dir, car)

	p.OnServerInitialized(false)
	require.Equal(t, 1, p.Status().AdaptersAttached)

	writeJSON(t, filepath.Join(dir, "UnderwaterVehicles.json"), map[string]any{
		"ModularCar": map[string]any{"Enabled": false, "DragMultiplier": 1},
	})
	require.NoError(t, p.ReloadConfig())

	assert.Equal(t, 0, p.Status().AdaptersAttached)
	assert.False(t, hooks.Subscribed[host.HookEntityMounted])
	assert.Same(t, car.Root, car.Sample.ParentNode())
}

func TestPluginReloadCorruptAppliesDefaults(t *testing.T) {
	dir := setupDir(t, "memory", 2)
	car := hosttest.NewVehicle(1, "ModularCar")
	p, _ := newTestPlugin(t, dir, car)
	p.OnServerInitialized(false)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "UnderwaterVehicles.json"), []byte("{not json"), 0644))
	assert.Error(t, p.ReloadConfig())

	assert.False(t, p.Config().ModularCar.Enabled)
	assert.Equal(t, 0, p.Status().AdaptersAttached)
}

func TestPluginSQLiteJournal(t *testing.T) {
	dir := setupDir(t, "sqlite", 2)
	car := hosttest.NewVehicle(9, "ModularCar")
	p, _ := newTestPlugin(t, dir, car)

	require.IsType(t, &storage.Buffered{}, p.Journal())

	p.OnServerInitialized(true)
	p.OnEntityKill(car)

	var events []core.LifecycleEvent
	require.Eventually(t, func() bool {
		var err error
		events, err = p.Journal().LifecycleEvents(9, 0)
		return err == nil && len(events) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, core.KindModularCar, events[1].Kind)
	assert.FileExists(t, filepath.Join(dir, "journal.db"))
}

func TestPluginUnloadTwice(t *testing.T) {
	dir := setupDir(t, "memory", 2)
	car := hosttest.NewVehicle(1, "ModularCar")
	p, _ := newTestPlugin(t, dir, car)
	p.OnServerInitialized(true)

	p.Unload()
	p.Unload()

	assert.Same(t, car.Root, car.Sample.ParentNode())
	assert.FileExists(t, filepath.Join(dir, "logs", "status.txt"))
}

func TestPluginIgnoresEventsAfterUnload(t *testing.T) {
	dir := setupDir(t, "memory", 2)
	p, hooks := newTestPlugin(t, dir)
	p.OnServerInitialized(true)
	p.Unload()

	car := hosttest.NewVehicle(1, "ModularCar")
	car.Occupants = 1
	assert.NotPanics(t, func() {
		p.OnServerInitialized(false)
		p.OnEntitySpawned(car)
		p.OnEntityMounted(car)
		p.OnEntityDismounted(car)
		p.OnEntityKill(car)
	})

	assert.ErrorIs(t, p.ReloadConfig(), ErrUnloaded)
	_, err := p.Dispatch(dispatcher.Event{Command: handlers.CmdSpawned, Vehicle: car})
	assert.ErrorIs(t, err, ErrUnloaded)

	assert.Equal(t, 0, p.service.AdapterCount())
	assert.Same(t, car.Root, car.Sample.ParentNode())
	assert.False(t, hooks.Subscribed[host.HookEntityMounted])
}

func TestPluginWatchesConfigFile(t *testing.T) {
	dir := setupDirWith(t, "memory", 2, map[string]any{"watchPluginConfig": true})
	car := hosttest.NewVehicle(1, "ModularCar")
	p, _ := newTestPlugin(t, dir, car)

	p.OnServerInitialized(false)
	require.Equal(t, 1, p.Status().AdaptersAttached)
	require.NotNil(t, p.watcher)

	writeJSON(t, filepath.Join(dir, "UnderwaterVehicles.json"), map[string]any{
		"ModularCar": map[string]any{"Enabled": true, "DragMultiplier": 4},
	})

	assert.Eventually(t, func() bool {
		p.Tick(WatchPollInterval)
		return p.Config().ModularCar.DragMultiplier == 4
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, p.Status().AdaptersAttached)
}

func TestPluginSessionID(t *testing.T) {
	dir := setupDir(t, "memory", 2)
	p, _ := newTestPlugin(t, dir)

	assert.Len(t, p.SessionID(), 36)

	b, err := os.ReadFile(p.LogFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(b), p.SessionID())
}
