package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"obseris/meta"
)

// AgentConfig describes one arena or throughput participant.
type AgentConfig struct {
	ID        int
	Name      string // checkpoint path, or the heuristic's name
	Workers   int
	BeamWidth int
	Depth     int
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type GenerationRecord struct {
	Generation int
	Best       float64
	Mean       float64 // over individuals whose evaluation succeeded
	Worst      float64
	Failures   int
	PoolSize   int
	Duration   time.Duration
}

type EpisodeRecord struct {
	Episode  int
	Steps    int
	Reward   float64
	Epsilon  float64
	Loss     float64 // mean regression loss, 0 before warmup
	Outcome  int     // +1 win, 0 draw, -1 loss for the learner
	Buffered int
	Duration time.Duration
}

type ThroughputRecord struct {
	Workers     int
	Searches    int
	Duration    time.Duration
	PerSecond   float64
	Evaluations int
}

type Writer struct {
	baseDir string
}

// NewWriter writes into dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: dir,
	}, nil
}

// NewExperimentWriter writes into experiments/<name>/<timestamp>.
func NewExperimentWriter(name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	return NewWriter(filepath.Join(meta.ExperimentsDir, name, timestamp))
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) write(file, what string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, file)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", what, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", what, err)
	}

	for _, row := range rows {
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write %s row: %w", what, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", what, err)
	}
	return nil
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Name,
			strconv.Itoa(config.Workers),
			strconv.Itoa(config.BeamWidth),
			strconv.Itoa(config.Depth),
		})
	}
	return w.write("agent_configs.csv", "agent configs",
		[]string{"id", "name", "workers", "beam_width", "depth"}, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.Winner),
			strconv.Itoa(record.Steps),
			strconv.FormatBool(record.Capped),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
		})
	}
	return w.write("game_records.csv", "game records",
		[]string{"id", "agent1", "agent2", "winner", "steps", "capped", "start_time", "end_time", "duration"}, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Side),
			record.Duration.String(),
			strconv.Itoa(record.Plies),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.Evaluations),
			strconv.Itoa(record.DeadEnds),
			strconv.Itoa(record.EnumerationErrors),
			strconv.FormatBool(record.IsFallback),
		})
	}
	return w.write("move_records.csv", "move records",
		[]string{"game", "step", "side", "duration", "plies", "expansions", "evaluations", "dead_ends", "enumeration_errors", "is_fallback"}, rows)
}

func (w *Writer) WriteGenerationRecords(records []GenerationRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Generation),
			formatFloat(record.Best),
			formatFloat(record.Mean),
			formatFloat(record.Worst),
			strconv.Itoa(record.Failures),
			strconv.Itoa(record.PoolSize),
			record.Duration.String(),
		})
	}
	return w.write("generations.csv", "generation records",
		[]string{"generation", "best", "mean", "worst", "failures", "pool_size", "duration"}, rows)
}

func (w *Writer) WriteEpisodeRecords(records []EpisodeRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Episode),
			strconv.Itoa(record.Steps),
			formatFloat(record.Reward),
			formatFloat(record.Epsilon),
			formatFloat(record.Loss),
			strconv.Itoa(record.Outcome),
			strconv.Itoa(record.Buffered),
			record.Duration.String(),
		})
	}
	return w.write("episodes.csv", "episode records",
		[]string{"episode", "steps", "reward", "epsilon", "loss", "outcome", "buffered", "duration"}, rows)
}

func (w *Writer) WriteThroughputRecords(records []ThroughputRecord) error {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Workers),
			strconv.Itoa(record.Searches),
			record.Duration.String(),
			formatFloat(record.PerSecond),
			strconv.Itoa(record.Evaluations),
		})
	}
	return w.write("throughput.csv", "throughput records",
		[]string{"workers", "searches", "duration", "searches_per_second", "evaluations"}, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
