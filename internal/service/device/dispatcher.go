package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/pkg/log"
)

const (
	DefaultCommandTimeout = 60 * time.Second
	autoConnectLimit      = 8
)

// InventoryEntry is a device known from the startup manifest.
type InventoryEntry struct {
	Params      core.ConnectionParams
	AutoConnect bool
}

type Option func(*Dispatcher)

func WithParser(p core.StructuredParser) Option {
	return func(d *Dispatcher) { d.parser = p }
}

func WithJournal(j core.SessionJournal) Option {
	return func(d *Dispatcher) {
		if j != nil {
			d.journal = j
		}
	}
}

func WithCommandTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.commandTimeout = timeout
		}
	}
}

func WithInventory(inventory map[string]InventoryEntry) Option {
	return func(d *Dispatcher) {
		for id, entry := range inventory {
			d.inventory[id] = entry
		}
	}
}

// Dispatcher is the command entry point for every device operation. Each
// call re-resolves its session through the registry.
type Dispatcher struct {
	registry       SessionRegistry
	drivers        core.DriverFactory
	parser         core.StructuredParser
	journal        core.SessionJournal
	commandTimeout time.Duration
	inventory      map[string]InventoryEntry
}

func NewDispatcher(registry SessionRegistry, drivers core.DriverFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:       registry,
		drivers:        drivers,
		journal:        noopJournal{},
		commandTimeout: DefaultCommandTimeout,
		inventory:      make(map[string]InventoryEntry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Inventory returns the manifest entry for id, if any.
func (d *Dispatcher) Inventory(id string) (InventoryEntry, bool) {
	entry, ok := d.inventory[id]
	return entry, ok
}

// InventoryIDs lists manifest device ids in order.
func (d *Dispatcher) InventoryIDs() []string {
	ids := make([]string, 0, len(d.inventory))
	for id := range d.inventory {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (d *Dispatcher) SupportedDeviceTypes() []string {
	return d.drivers.Supported()
}

// ConnectDevice opens a session for id. Missing fields are filled from the
// inventory entry with the same id. A failed connect leaves no entry behind.
func (d *Dispatcher) ConnectDevice(ctx context.Context, id string, params core.ConnectionParams) (core.DeviceInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DeviceInfo{}, core.InvalidArgument("", "device_id is required")
	}

	params = d.mergeInventory(id, params)
	if err := validateParams(id, params); err != nil {
		return core.DeviceInfo{}, err
	}

	driver, err := d.drivers.NewDriver(params.DeviceType)
	if err != nil {
		return core.DeviceInfo{}, core.AsDeviceError(err, id, core.KindUnsupportedDeviceType)
	}

	if pd, ok := driver.(core.PortDefaulter); ok && params.Port == 0 {
		params.Port = pd.DefaultPort()
	}

	session := NewSession(id, params, driver)
	if err := d.registry.Register(id, session); err != nil {
		return core.DeviceInfo{}, err
	}

	logger := log.WithDevice(ctx, id, params.Host, params.DeviceType)
	logger.Info().Int("port", session.Params().Port).Msg("Connecting")

	connectCtx, cancel := context.WithTimeout(ctx, session.Params().Timeout)
	defer cancel()

	start := time.Now()
	if err := session.Connect(connectCtx); err != nil {
		d.registry.RemoveSession(id, session)
		de := core.AsDeviceError(err, id, core.KindConnectFailure)
		logger.Warn().Err(de).Dur("elapsed", time.Since(start)).Msg("Connect failed")
		// Disconnected during connect: the disconnect records itself.
		if de.Kind != core.KindNotConnected {
			d.record(ctx, session, core.StateFailed, de)
		}
		return core.DeviceInfo{}, de
	}

	info := session.Describe()
	logger.Info().
		Str("prompt", info.Prompt).
		Dur("elapsed", time.Since(start)).
		Msg("Connected")
	d.record(ctx, session, core.StateConnected, nil)
	return info, nil
}

// DisconnectDevice closes and forgets id. A close error is returned as a
// warning string; the session is removed regardless.
func (d *Dispatcher) DisconnectDevice(ctx context.Context, id string) (string, error) {
	session, err := d.registry.Lookup(id)
	if err != nil {
		return "", err
	}

	p := session.Params()
	logger := log.WithDevice(ctx, id, p.Host, p.DeviceType)

	closeErr := session.Disconnect(ctx)
	d.registry.RemoveSession(id, session)

	var warning string
	if closeErr != nil {
		warning = fmt.Sprintf("connection closed with error: %v", closeErr)
		logger.Warn().Err(closeErr).Msg("Disconnect finished with error")
	} else {
		logger.Info().Msg("Disconnected")
	}
	d.record(ctx, session, core.StateDisconnected, closeErr)
	return warning, nil
}

// SendCommand runs a single read command. Structured parsing failures fall
// back to raw output with a warning.
func (d *Dispatcher) SendCommand(ctx context.Context, id, command string, opts core.CommandOptions) (core.CommandResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return core.CommandResult{}, core.InvalidArgument(id, "command is required")
	}

	session, err := d.registry.Lookup(id)
	if err != nil {
		return core.CommandResult{}, err
	}

	req := core.Request{
		Mode:         core.ModeRead,
		Commands:     []string{command},
		StripPrompt:  opts.StripPrompt,
		StripCommand: opts.StripCommand,
	}

	start := time.Now()
	output, err := d.execute(ctx, session, req)
	result := core.CommandResult{
		DeviceID: id,
		Command:  command,
		Duration: time.Since(start),
	}
	if err != nil {
		return result, failResult(&result, err)
	}

	result.Success = true
	result.Output = output

	if opts.StructuredParsing {
		d.parse(ctx, session, &result)
	}
	return result, nil
}

// SendConfigCommands sends commands as one ordered configuration batch. On a
// rejected line the partial output is kept on the returned result.
func (d *Dispatcher) SendConfigCommands(ctx context.Context, id string, commands []string, exitConfigMode bool) (core.CommandResult, error) {
	batch := make([]string, 0, len(commands))
	for _, c := range commands {
		if c = strings.TrimRight(c, "\r\n"); strings.TrimSpace(c) != "" {
			batch = append(batch, c)
		}
	}
	if len(batch) == 0 {
		return core.CommandResult{}, core.InvalidArgument(id, "commands must contain at least one command")
	}

	session, err := d.registry.Lookup(id)
	if err != nil {
		return core.CommandResult{}, err
	}

	req := core.Request{
		Mode:           core.ModeWrite,
		Commands:       batch,
		ExitConfigMode: exitConfigMode,
	}

	start := time.Now()
	output, err := d.execute(ctx, session, req)
	result := core.CommandResult{
		DeviceID: id,
		Commands: batch,
		Output:   output,
		Duration: time.Since(start),
	}
	if err != nil {
		return result, failResult(&result, err)
	}

	result.Success = true
	return result, nil
}

func (d *Dispatcher) GetDeviceInfo(id string) (core.DeviceInfo, error) {
	session, err := d.registry.Lookup(id)
	if err != nil {
		return core.DeviceInfo{}, err
	}
	return session.Describe(), nil
}

func (d *Dispatcher) ListConnectedDevices() []core.DeviceInfo {
	return d.registry.List()
}

// Start connects manifest entries flagged auto_connect. Failures are logged
// and never stop the process.
func (d *Dispatcher) Start(ctx context.Context) error {
	var ids []string
	for _, id := range d.InventoryIDs() {
		if d.inventory[id].AutoConnect {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	logger := log.FromCtx(ctx)
	logger.Info().Int("devices", len(ids)).Msg("Auto-connecting inventory devices")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(autoConnectLimit)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := d.ConnectDevice(gctx, id, core.ConnectionParams{}); err != nil {
				logger.Warn().Err(err).Str("device", id).Msg("Auto-connect failed")
			}
			return nil
		})
	}
	return g.Wait()
}

// Shutdown drains the registry and disconnects every session in parallel.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	sessions := d.registry.Drain()
	if len(sessions) == 0 {
		return nil
	}

	log.FromCtx(ctx).Info().Int("sessions", len(sessions)).Msg("Disconnecting all devices")

	errs := make([]error, len(sessions))
	var g errgroup.Group
	for i, s := range sessions {
		g.Go(func() error {
			err := s.Disconnect(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("disconnect %s: %w", s.ID(), err)
			}
			d.record(ctx, s, core.StateDisconnected, err)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) execute(ctx context.Context, session *Session, req core.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()

	p := session.Params()
	logger := log.WithDevice(ctx, session.ID(), p.Host, p.DeviceType)
	logger.Debug().
		Str("mode", req.Mode.String()).
		Int("commands", len(req.Commands)).
		Msg("Executing")

	output, err := session.Execute(ctx, req)
	if err == nil {
		return output, nil
	}

	de := core.AsDeviceError(err, session.ID(), core.KindCommandFailure)
	logger.Warn().Err(de).Str("mode", req.Mode.String()).Msg("Command failed")
	if session.State() == core.StateFailed {
		d.record(ctx, session, core.StateFailed, de)
	}
	return output, de
}

// failResult copies the error classification onto result so callers that
// only see the result still get kind and reason.
func failResult(result *core.CommandResult, err error) error {
	de := core.AsDeviceError(err, result.DeviceID, core.KindCommandFailure)
	result.ErrorKind = de.Kind
	result.Reason = de.Reason
	result.Message = de.Message()
	return de
}

func (d *Dispatcher) parse(ctx context.Context, session *Session, result *core.CommandResult) {
	if d.parser == nil {
		result.Warning = "structured parsing is not available; returning raw output"
		return
	}

	rows, err := d.parser.Parse(session.Params().DeviceType, result.Command, result.Output)
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).
			Str("device", session.ID()).
			Str("command", result.Command).
			Msg("Structured parsing failed")
		result.Warning = fmt.Sprintf("structured parsing failed: %v; returning raw output", err)
		return
	}

	result.Rows = rows
	result.Parsed = true
	result.Output = ""
}

func (d *Dispatcher) mergeInventory(id string, params core.ConnectionParams) core.ConnectionParams {
	entry, ok := d.inventory[id]
	if !ok {
		return params
	}
	inv := entry.Params
	if params.Host == "" {
		params.Host = inv.Host
	}
	if params.Port <= 0 {
		params.Port = inv.Port
	}
	if params.DeviceType == "" {
		params.DeviceType = inv.DeviceType
	}
	if params.Username == "" {
		params.Username = inv.Username
	}
	if params.Password == "" {
		params.Password = inv.Password
	}
	if params.Secret == "" {
		params.Secret = inv.Secret
	}
	if params.Timeout <= 0 {
		params.Timeout = inv.Timeout
	}
	return params
}

func (d *Dispatcher) record(ctx context.Context, session *Session, state core.State, err error) {
	p := session.Params()
	ev := core.SessionEvent{
		DeviceID:   session.ID(),
		Host:       p.Host,
		DeviceType: p.DeviceType,
		State:      state,
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		ev.ErrorKind = core.KindOf(err)
		ev.Message = err.Error()
	}
	// Journal writes must outlive a caller that already timed out.
	if jerr := d.journal.Record(context.WithoutCancel(ctx), ev); jerr != nil {
		log.FromCtx(ctx).Warn().Err(jerr).Str("device", session.ID()).Msg("Failed to record session event")
	}
}

func validateParams(id string, p core.ConnectionParams) error {
	switch {
	case strings.TrimSpace(p.Host) == "":
		return core.InvalidArgument(id, "host is required")
	case strings.TrimSpace(p.DeviceType) == "":
		return core.InvalidArgument(id, "device_type is required")
	case p.Port < 0 || p.Port > 65535:
		return core.InvalidArgument(id, "port %d is out of range", p.Port)
	case p.Timeout < 0:
		return core.InvalidArgument(id, "timeout must not be negative")
	}
	return nil
}

type noopJournal struct{}

func (noopJournal) Record(context.Context, core.SessionEvent) error {
	return nil
}

func (noopJournal) Recent(context.Context, string, int) ([]core.SessionEvent, error) {
	return nil, nil
}
