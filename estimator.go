package fusion

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	mat "github.com/mrfyo/matrix"
)

// SensorType identifies the sensor that produced a measurement.
type SensorType int

const (
	Lidar SensorType = iota + 1 // direct position [px, py]
	Radar                       // range, bearing, range rate [rho, phi, rho_dot]
)

func (s SensorType) String() string {
	switch s {
	case Lidar:
		return "lidar"
	case Radar:
		return "radar"
	default:
		return fmt.Sprintf("sensor(%d)", int(s))
	}
}

// Measurement is one raw sensor reading.
type Measurement struct {
	Sensor      SensorType
	TimestampUS int64 // microseconds
	Values      []float64
}

// State is the persistent filter state. An Estimator owns exactly one.
type State struct {
	X           Matrix // (StateDim, 1) [px, py, v, yaw, yawd]
	P           Matrix // (StateDim, StateDim)
	Initialized bool
	TimestampUS int64
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		X:           s.X.Copy(),
		P:           s.P.Copy(),
		Initialized: s.Initialized,
		TimestampUS: s.TimestampUS,
	}
}

// SensorStats counts what happened to the measurements of one sensor.
type SensorStats struct {
	Updates     int     // successful updates
	Skipped     int     // measurements of a disabled sensor after initialization
	Faults      int     // updates rejected by a numerical fault
	NISExceeded int     // updates whose NIS exceeded the chi-square threshold
	LastNIS     float64 // NIS of the last successful update
}

// Stats summarizes an estimator's history.
type Stats struct {
	Lidar         SensorStats
	Radar         SensorStats
	PredictFaults int
}

// Estimator fuses lidar and radar measurements of one object with a CTRV
// unscented Kalman filter. It is not safe for concurrent use.
type Estimator struct {
	ID string

	cfg     Config
	noise   ProcessNoise
	weights Matrix
	lidar   *LidarModel
	radar   *RadarModel

	lidarNISLimit float64
	radarNISLimit float64

	state State
	stats Stats
}

var _ Filter = (*Estimator)(nil)

// NewEstimator returns an uninitialized estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lidar := NewLidarModel(cfg.StdLaserPx, cfg.StdLaserPy)
	radar := NewRadarModel(cfg.StdRadarRho, cfg.StdRadarPhi, cfg.StdRadarRhoDot, cfg.MinRange)

	e := &Estimator{
		ID:            uuid.NewString(),
		cfg:           cfg,
		noise:         cfg.ProcessNoise(),
		weights:       Weights(AugDim, Lambda),
		lidar:         lidar,
		radar:         radar,
		lidarNISLimit: NISThreshold(lidar.Dim(), cfg.NISConfidence),
		radarNISLimit: NISThreshold(radar.Dim(), cfg.NISConfidence),
	}
	e.Reset()
	return e, nil
}

// Reset drops the estimate and statistics; the next measurement initializes again.
func (e *Estimator) Reset() {
	e.state = State{
		X: mat.Zeros(Shape{Row: StateDim, Col: 1}),
		P: mat.Zeros(Shape{Row: StateDim, Col: StateDim}),
	}
	e.stats = Stats{}
}

// Config returns the configuration the estimator was built with.
func (e *Estimator) Config() Config { return e.cfg }

// Initialized reports whether a first measurement has been processed.
func (e *Estimator) Initialized() bool { return e.state.Initialized }

// Timestamp is the timestamp of the last processed measurement, in microseconds.
func (e *Estimator) Timestamp() int64 { return e.state.TimestampUS }

// State returns a copy of the current state. ok is false until the first
// measurement has been processed, in which case the state is meaningless.
func (e *Estimator) State() (st State, ok bool) {
	return e.state.Clone(), e.state.Initialized
}

// Stats returns a snapshot of the per-sensor counters.
func (e *Estimator) Stats() Stats { return e.stats }

// ProcessMeasurement runs one filter cycle.
//
// The first measurement initializes the state. Afterwards the state is
// predicted to the measurement time and corrected if the sensor is enabled.
// A failed prediction leaves the state and timestamp as they were; a failed
// update keeps the predicted state. Both return an error wrapping
// ErrNotPositiveDefinite or ErrSingularCovariance.
func (e *Estimator) ProcessMeasurement(m Measurement) error {
	model, err := e.model(m)
	if err != nil {
		return err
	}

	if !e.state.Initialized {
		e.initialize(m)
		return nil
	}

	dt := float64(m.TimestampUS-e.state.TimestampUS) / 1e6

	prior := e.state.Clone()
	pred, err := Predict(&e.state, e.weights, e.noise, dt)
	if err == nil {
		err = CheckCovariance(e.state.P, e.cfg.CovarianceTolerance)
	}
	if err != nil {
		e.state = prior
		e.stats.PredictFaults++
		Logf("fusion %s: predict over %.6fs at %d aborted: %v", e.ID, dt, m.TimestampUS, err)
		return fmt.Errorf("predict: %w", err)
	}
	e.state.TimestampUS = m.TimestampUS

	stats, limit := &e.stats.Lidar, e.lidarNISLimit
	enabled := e.cfg.UseLidar
	if m.Sensor == Radar {
		stats, limit = &e.stats.Radar, e.radarNISLimit
		enabled = e.cfg.UseRadar
	}
	if !enabled {
		stats.Skipped++
		return nil
	}

	predicted := e.state.Clone()
	inn, err := Update(&e.state, pred, e.weights, model, vector(m.Values...))
	if err == nil {
		err = CheckCovariance(e.state.P, e.cfg.CovarianceTolerance)
	}
	if err != nil {
		e.state = predicted
		stats.Faults++
		Logf("fusion %s: %s update at %d skipped: %v", e.ID, m.Sensor, m.TimestampUS, err)
		return fmt.Errorf("%s update: %w", m.Sensor, err)
	}

	stats.Updates++
	stats.LastNIS = inn.NIS
	if inn.NIS > limit {
		stats.NISExceeded++
	}
	return nil
}

// model validates m and returns the measurement model for its sensor.
func (e *Estimator) model(m Measurement) (MeasurementModel, error) {
	var model MeasurementModel
	switch m.Sensor {
	case Lidar:
		model = e.lidar
	case Radar:
		model = e.radar
	default:
		return nil, fmt.Errorf("%w: unknown sensor %v", ErrBadMeasurement, m.Sensor)
	}
	if len(m.Values) != model.Dim() {
		return nil, fmt.Errorf("%w: %s wants %d values, got %d", ErrBadMeasurement, m.Sensor, model.Dim(), len(m.Values))
	}
	if !finite(vector(m.Values...)) {
		return nil, fmt.Errorf("%w: non-finite %s values %v", ErrBadMeasurement, m.Sensor, m.Values)
	}
	return model, nil
}

// initialize seeds the state from a single measurement. Observed components
// get the sensor variance, unobserved ones unit variance.
//
// A radar reading seeds speed with the range rate and yaw with the bearing;
// both are rough guesses that the following updates correct.
func (e *Estimator) initialize(m Measurement) {
	switch m.Sensor {
	case Lidar:
		e.state.X = vector(m.Values[0], m.Values[1], 0, 0, 0)
		e.state.P = mat.Diag([]float64{
			e.cfg.StdLaserPx * e.cfg.StdLaserPx,
			e.cfg.StdLaserPy * e.cfg.StdLaserPy,
			1, 1, 1,
		})
	case Radar:
		rho, phi, rhoDot := m.Values[0], m.Values[1], m.Values[2]
		e.state.X = vector(rho*math.Cos(phi), rho*math.Sin(phi), rhoDot, NormalizeAngle(phi), 0)
		e.state.P = mat.Diag([]float64{
			e.cfg.StdRadarRho * e.cfg.StdRadarRho,
			e.cfg.StdRadarPhi * e.cfg.StdRadarPhi,
			e.cfg.StdRadarRhoDot * e.cfg.StdRadarRhoDot,
			1, 1,
		})
	}
	e.state.Initialized = true
	e.state.TimestampUS = m.TimestampUS
	Logf("fusion %s: initialized from %s at %d", e.ID, m.Sensor, m.TimestampUS)
}
