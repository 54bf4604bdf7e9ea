package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/open-adkit/latctl/internal/sim"
	"github.com/open-adkit/latctl/internal/traj"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Path      string             `json:"path"`
	Speed     float64            `json:"speed"`
	Duration  float64            `json:"duration"`
	Radius    float64            `json:"radius,omitempty"`
	Seed      int64              `json:"seed"`
	Failures  int                `json:"failures"`
	Metrics   map[string]float64 `json:"metrics"`
}

var recordHeader = []string{
	"time", "x", "y", "yaw", "steer", "steer_cmd", "steer_rate",
	"lat_err", "yaw_err", "failed",
}

func (s *Store) Save(model string, sc sim.Scenario, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", sc.Path, model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     model,
		Timestamp: time.Now(),
		Path:      sc.Path,
		Speed:     sc.Speed,
		Duration:  sc.Duration,
		Radius:    sc.Radius,
		Seed:      sc.Seed,
		Failures:  result.Failures,
		Metrics:   result.Metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "records.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(recordHeader); err != nil {
		return "", err
	}
	for _, r := range result.Records {
		failed := "0"
		if r.Failed {
			failed = "1"
		}
		row := []string{
			fmtFloat(r.Time),
			fmtFloat(r.Pose.X),
			fmtFloat(r.Pose.Y),
			fmtFloat(r.Pose.Yaw),
			fmtFloat(r.Steer),
			fmtFloat(r.SteerCmd),
			fmtFloat(r.SteerRate),
			fmtFloat(r.LatErr),
			fmtFloat(r.YawErr),
			failed,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadRecords(runID string) ([]sim.Record, error) {
	csvPath := filepath.Join(s.baseDir, runID, "records.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(recordHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []sim.Record{}, nil
	}

	records := make([]sim.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		vals := make([]float64, len(recordHeader)-1)
		ok := true
		for i := range vals {
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		records = append(records, sim.Record{
			Time:      vals[0],
			Pose:      traj.Pose{X: vals[1], Y: vals[2], Yaw: vals[3]},
			Steer:     vals[4],
			SteerCmd:  vals[5],
			SteerRate: vals[6],
			LatErr:    vals[7],
			YawErr:    vals[8],
			Failed:    row[9] == "1",
		})
	}
	return records, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ExportCSV streams a run's records to the writer in the stored layout.
func (s *Store) ExportCSV(runID string, out *os.File) error {
	csvPath := filepath.Join(s.baseDir, runID, "records.csv")
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
