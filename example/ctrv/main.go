package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/SpynFayde/fusion"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func main() {
	var (
		configPath = flag.String("config", "", "JSON filter configuration (defaults when empty)")
		inPath     = flag.String("in", "", "measurement records to replay instead of simulating")
		outPath    = flag.String("out", "./out.csv", "CSV output path")
		plotPath   = flag.String("plot", "", "PNG trajectory plot path (skipped when empty)")
		n          = flag.Int("n", 500, "number of simulated measurements")
		dtUS       = flag.Int64("dt", 50000, "simulated measurement interval in microseconds")
		seed       = flag.Int64("seed", 1, "simulation random seed")
	)
	flag.Parse()

	cfg := fusion.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = fusion.LoadConfig(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	var (
		records []fusion.Measurement
		truth   plotter.XYs
		err     error
	)
	if *inPath != "" {
		records, err = ReadRecords(*inPath)
		if err != nil {
			log.Fatalf("read %s: %v", *inPath, err)
		}
	} else {
		records, truth = CreateTrack(*n, *dtUS, *seed, cfg)
	}

	kf, err := fusion.NewEstimator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var (
		result   []string
		estimate plotter.XYs
		observed plotter.XYs
	)
	result = append(result, "timestamp,sensor,px,py,v,yaw,yawd,z_px,z_py")
	for _, m := range records {
		if err := Run(kf, m); err != nil {
			log.Printf("%d: %v", m.TimestampUS, err)
		}

		st, ok := kf.State()
		if !ok {
			continue
		}
		zx, zy := Position(m)
		x := st.X
		csv := fmt.Sprintf("%d,%s,%.5f,%.5f,%.5f,%.5f,%.5f,%.5f,%.5f", m.TimestampUS, m.Sensor,
			x.GetIndex(0), x.GetIndex(1), x.GetIndex(2), x.GetIndex(3), x.GetIndex(4), zx, zy)
		result = append(result, csv)
		estimate = append(estimate, plotter.XY{X: x.GetIndex(0), Y: x.GetIndex(1)})
		observed = append(observed, plotter.XY{X: zx, Y: zy})
	}

	if err := os.WriteFile(*outPath, []byte(strings.Join(result, "\r\n")), 0o644); err != nil {
		log.Fatal(err)
	}

	stats := kf.Stats()
	log.Printf("lidar: %d updates, %d over NIS threshold; radar: %d updates, %d over NIS threshold",
		stats.Lidar.Updates, stats.Lidar.NISExceeded, stats.Radar.Updates, stats.Radar.NISExceeded)

	if *plotPath != "" {
		if err := SavePlot(*plotPath, estimate, observed, truth); err != nil {
			log.Fatal(err)
		}
	}
}

// Run feeds one measurement through any filter.
func Run(f fusion.Filter, m fusion.Measurement) error {
	return f.ProcessMeasurement(m)
}

// Position converts a measurement to Cartesian coordinates for display.
func Position(m fusion.Measurement) (x, y float64) {
	if m.Sensor == fusion.Radar {
		return m.Values[0] * math.Cos(m.Values[1]), m.Values[0] * math.Sin(m.Values[1])
	}
	return m.Values[0], m.Values[1]
}

// ReadRecords parses one measurement per line:
//
//	L px py timestamp [ground truth...]
//	R rho phi rho_dot timestamp [ground truth...]
//
// Trailing columns are ignored.
func ReadRecords(path string) ([]fusion.Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []fusion.Measurement
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var m fusion.Measurement
		switch fields[0] {
		case "L":
			m.Sensor = fusion.Lidar
		case "R":
			m.Sensor = fusion.Radar
		default:
			return nil, fmt.Errorf("line %d: unknown sensor %q", line, fields[0])
		}

		nv := 2
		if m.Sensor == fusion.Radar {
			nv = 3
		}
		if len(fields) < nv+2 {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", line, nv+2, len(fields))
		}
		for _, s := range fields[1 : nv+1] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Values = append(m.Values, v)
		}
		if m.TimestampUS, err = strconv.ParseInt(fields[nv+1], 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no measurements")
	}
	return out, nil
}

// CreateTrack simulates an object turning at a constant rate and returns
// alternating noisy lidar and radar measurements and the true positions.
func CreateTrack(n int, dtUS, seed int64, cfg fusion.Config) (Z []fusion.Measurement, truth plotter.XYs) {
	rng := rand.New(rand.NewSource(seed))
	px, py, v, yaw, yawd := 0.6, 0.6, 5.0, 0.0, 0.3
	dt := float64(dtUS) / 1e6

	for i := 0; i < n; i++ {
		if i > 0 {
			px += v / yawd * (math.Sin(yaw+yawd*dt) - math.Sin(yaw))
			py += v / yawd * (math.Cos(yaw) - math.Cos(yaw+yawd*dt))
			yaw += yawd * dt
		}
		truth = append(truth, plotter.XY{X: px, Y: py})
		ts := int64(i) * dtUS

		if i%2 == 0 {
			Z = append(Z, fusion.Measurement{Sensor: fusion.Lidar, TimestampUS: ts, Values: []float64{
				px + cfg.StdLaserPx*rng.NormFloat64(),
				py + cfg.StdLaserPy*rng.NormFloat64(),
			}})
			continue
		}

		rho := math.Hypot(px, py)
		Z = append(Z, fusion.Measurement{Sensor: fusion.Radar, TimestampUS: ts, Values: []float64{
			rho + cfg.StdRadarRho*rng.NormFloat64(),
			math.Atan2(py, px) + cfg.StdRadarPhi*rng.NormFloat64(),
			(px*v*math.Cos(yaw)+py*v*math.Sin(yaw))/rho + cfg.StdRadarRhoDot*rng.NormFloat64(),
		}})
	}
	return
}

// SavePlot draws the estimated, measured and (when known) true trajectories.
func SavePlot(path string, estimate, observed, truth plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "CTRV unscented Kalman filter"
	p.X.Label.Text = "px [m]"
	p.Y.Label.Text = "py [m]"

	if err := plotutil.AddScatters(p, "measurement", observed); err != nil {
		return err
	}
	lines := []interface{}{"estimate", estimate}
	if len(truth) > 0 {
		lines = append(lines, "truth", truth)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
