package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

// Stage identifies the session step a failure policy is asked about.
type Stage int

const (
	StageConnect Stage = iota
	StageRetrieve
)

// FailurePolicy decides whether a simulated step fails for a device.
type FailurePolicy func(stage Stage, device models.Device) bool

// NoFailures never fails.
func NoFailures(Stage, models.Device) bool { return false }

// RandomFailures fails connects and retrievals at the given rates.
func RandomFailures(connectRate, retrieveRate float64, seed uint64) FailurePolicy {
	var mu sync.Mutex
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(stage Stage, _ models.Device) bool {
		mu.Lock()
		defer mu.Unlock()
		if stage == StageConnect {
			return rnd.Float64() < connectRate
		}
		return rnd.Float64() < retrieveRate
	}
}

// FailDevices fails the named devices at the given stage.
func FailDevices(stage Stage, names ...string) FailurePolicy {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(s Stage, device models.Device) bool {
		if s != stage {
			return false
		}
		_, ok := set[device.Name]
		return ok
	}
}

// SimulatedConnector produces vendor-style configurations without touching
// the network.
type SimulatedConnector struct {
	generators map[string]Generator
	failures   FailurePolicy
	delay      time.Duration
	now        func() time.Time
	logger     logging.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// SimulatedOption configures a SimulatedConnector
type SimulatedOption func(*SimulatedConnector)

// WithFailurePolicy sets the failure injection policy
func WithFailurePolicy(p FailurePolicy) SimulatedOption {
	return func(c *SimulatedConnector) { c.failures = p }
}

// WithDelay sets the maximum simulated latency per step
func WithDelay(d time.Duration) SimulatedOption {
	return func(c *SimulatedConnector) { c.delay = d }
}

// WithSeed makes generated configurations reproducible
func WithSeed(seed uint64) SimulatedOption {
	return func(c *SimulatedConnector) { c.rnd = rand.New(rand.NewPCG(seed, seed)) }
}

// WithGenerator registers a generator for a device type
func WithGenerator(deviceType string, g Generator) SimulatedOption {
	return func(c *SimulatedConnector) { c.generators[deviceType] = g }
}

// WithClock overrides the time source used in generated headers
func WithClock(now func() time.Time) SimulatedOption {
	return func(c *SimulatedConnector) { c.now = now }
}

// NewSimulatedConnector creates a connector with the default vendor
// generators and no failures.
func NewSimulatedConnector(logger logging.Logger, opts ...SimulatedOption) *SimulatedConnector {
	c := &SimulatedConnector{
		generators: DefaultGenerators(),
		failures:   NoFailures,
		now:        time.Now,
		logger:     logger,
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GeneratorFor returns the generator for deviceType, falling back to Cisco IOS.
func (c *SimulatedConnector) GeneratorFor(deviceType string) Generator {
	if g, ok := c.generators[deviceType]; ok {
		return g
	}
	return CiscoIOSConfig
}

// Connect simulates opening a session to device.
func (c *SimulatedConnector) Connect(ctx context.Context, device models.Device) (Session, error) {
	c.logger.Info("Connecting to %s (%s)...", device.Name, device.Host)
	if err := c.wait(ctx); err != nil {
		return nil, NewConnectionError(device.Name, "connection aborted", err)
	}
	if c.failures(StageConnect, device) {
		return nil, NewConnectionError(device.Name, "simulated connection timeout", nil)
	}
	c.logger.Debug("Connected to %s", device.Name)
	return &simulatedSession{connector: c, device: device}, nil
}

// wait sleeps for a random duration up to the configured delay.
func (c *SimulatedConnector) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	c.mu.Lock()
	d := time.Duration(c.rnd.Int64N(int64(c.delay)) + 1)
	c.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *SimulatedConnector) generate(deviceType, name string) string {
	gen := c.GeneratorFor(deviceType)
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen(name, c.now(), c.rnd)
}

type simulatedSession struct {
	connector *SimulatedConnector
	device    models.Device
	closed    bool
}

func (s *simulatedSession) Retrieve(ctx context.Context, deviceType string) (string, error) {
	if s.closed {
		return "", NewRetrievalError(s.device.Name, "session closed", nil)
	}
	if err := s.connector.wait(ctx); err != nil {
		return "", NewRetrievalError(s.device.Name, "retrieval aborted", err)
	}
	config := s.connector.generate(deviceType, s.device.Name)
	if s.connector.failures(StageRetrieve, s.device) {
		return "", NewRetrievalError(s.device.Name, "simulated config retrieval error", nil)
	}
	return config, nil
}

func (s *simulatedSession) Close() error {
	s.closed = true
	return nil
}
