// Package store persists model runs and valuations produced by the regression package.
//
// It implements the Store interface on SQLite. A model run records how a
// model was fitted and how well; a valuation records a point estimate
// derived from a stored run.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/obrafacil/regression"
	"github.com/obrafacil/regression/logger"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrNonFiniteMetrics is returned when a record carries NaN or ±Inf values.
	ErrNonFiniteMetrics = errors.New("store: non-finite metrics")
)

// Store defines the persistence of model runs and valuations.
type Store interface {
	// SaveModelRun persists a fitted model and returns its run ID.
	SaveModelRun(ctx context.Context, run *ModelRun) (string, error)
	// SaveValuation persists a valuation of a stored run and returns its result ID.
	SaveValuation(ctx context.Context, v *Valuation) (string, error)
	// GetModelRun returns a stored run.
	GetModelRun(ctx context.Context, runID string) (*ModelRun, error)
	// ListModelRuns returns the runs of a project, newest first.
	ListModelRuns(ctx context.Context, projectID string) ([]*ModelRun, error)
	// ListValuations returns the valuations of a run, newest first.
	ListValuations(ctx context.Context, runID string) ([]*Valuation, error)
	// Close releases the database connection.
	Close() error
}

// FitMetrics holds the goodness of fit of a model run.
type FitMetrics struct {
	RSquared          float64 `json:"rSquared"`
	RSquaredAdjusted  float64 `json:"rSquaredAdjusted"`
	MAE               float64 `json:"mae"`
	RMSE              float64 `json:"rmse"`
	NumOfObservations int     `json:"numOfObservations"`
}

// ModelRun is a persisted model fit.
type ModelRun struct {
	RunID        string                     `json:"runId"`
	ProjectID    string                     `json:"projectId"`
	FeatureNames []string                   `json:"featureNames"`
	TargetColumn string                     `json:"targetColumn"`
	Transforms   regression.TransformConfig `json:"transforms"`
	Metrics      FitMetrics                 `json:"metrics"`
	Diagnostics  map[string]float64         `json:"diagnostics,omitempty"`
	Artifacts    []string                   `json:"artifacts,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
}

// Valuation is a persisted point estimate derived from a model run.
type Valuation struct {
	ResultID           string              `json:"resultId"`
	ProjectID          string              `json:"projectId"`
	RunID              string              `json:"runId"`
	PointEstimate      float64             `json:"pointEstimate"`
	ConfidenceInterval regression.Interval `json:"confidenceInterval"`
	Elasticities       map[string]float64  `json:"elasticities,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// NewModelRun builds a ModelRun from a fitted result.
// Non-finite diagnostics are left out; artifacts are references such as chart file paths.
func NewModelRun(projectID, targetColumn string, res *regression.Result, artifacts []string) *ModelRun {
	run := &ModelRun{
		ProjectID:    projectID,
		FeatureNames: append([]string(nil), res.FeatureNames...),
		TargetColumn: targetColumn,
		Transforms:   res.Transforms,
		Metrics: FitMetrics{
			RSquared:          res.RSquared,
			RSquaredAdjusted:  res.RSquaredAdjusted,
			MAE:               res.MAE,
			RMSE:              res.RMSE,
			NumOfObservations: res.NumOfObservations,
		},
		Diagnostics: map[string]float64{},
		Artifacts:   artifacts,
	}

	d := res.Diagnostics()
	for name, v := range map[string]float64{
		"durbinWatson":   d.DurbinWatson,
		"skewness":       d.Skewness,
		"excessKurtosis": d.ExcessKurtosis,
		"jarqueBera":     d.JarqueBera,
		"jarqueBeraProb": d.JarqueBeraProb,
		"fStat":          res.ANOVA.RegressionFstat,
		"fProb":          res.ANOVA.RegressionProb,
	} {
		if isFinite(v) {
			run.Diagnostics[name] = v
		}
	}
	return run
}

// DBService implements the Store interface using SQLite.
type DBService struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewDBService opens the SQLite database at path and initializes the schema.
// Use ":memory:" for an in-memory database.
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	// SQLite only supports one writer at a time; a single connection also
	// keeps an in-memory database alive between calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{db: db, path: path, now: time.Now}
	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return svc, nil
}

func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// SaveModelRun persists run. Runs with non-finite fit metrics are rejected.
func (s *DBService) SaveModelRun(ctx context.Context, run *ModelRun) (string, error) {
	m := run.Metrics
	if !isFinite(m.RSquared) || !isFinite(m.RSquaredAdjusted) || !isFinite(m.MAE) || !isFinite(m.RMSE) {
		return "", fmt.Errorf("model run of project %s: %w", run.ProjectID, ErrNonFiniteMetrics)
	}
	for name, v := range run.Diagnostics {
		if !isFinite(v) {
			return "", fmt.Errorf("diagnostic %s: %w", name, ErrNonFiniteMetrics)
		}
	}

	features, err := json.Marshal(run.FeatureNames)
	if err != nil {
		return "", fmt.Errorf("encoding feature names: %w", err)
	}
	transforms, err := json.Marshal(run.Transforms)
	if err != nil {
		return "", fmt.Errorf("encoding transform config: %w", err)
	}
	diagnostics, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return "", fmt.Errorf("encoding diagnostics: %w", err)
	}
	artifacts, err := json.Marshal(run.Artifacts)
	if err != nil {
		return "", fmt.Errorf("encoding artifacts: %w", err)
	}

	runID := uuid.NewString()
	createdAt := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_runs (run_id, project_id, target_column, feature_names, transform_config,
			r_squared, r_squared_adjusted, mae, rmse, num_observations, diagnostics, artifacts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, run.ProjectID, run.TargetColumn, string(features), string(transforms),
		m.RSquared, m.RSquaredAdjusted, m.MAE, m.RMSE, m.NumOfObservations,
		string(diagnostics), string(artifacts), createdAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting model run: %w", err)
	}

	logger.Debug.With("Saved model run", "run_id", runID, "project_id", run.ProjectID)
	return runID, nil
}

// SaveValuation persists v. The referenced run must exist.
func (s *DBService) SaveValuation(ctx context.Context, v *Valuation) (string, error) {
	if !isFinite(v.PointEstimate) || !isFinite(v.ConfidenceInterval.Lower) || !isFinite(v.ConfidenceInterval.Upper) {
		return "", fmt.Errorf("valuation of run %s: %w", v.RunID, ErrNonFiniteMetrics)
	}
	for name, e := range v.Elasticities {
		if !isFinite(e) {
			return "", fmt.Errorf("elasticity %s: %w", name, ErrNonFiniteMetrics)
		}
	}
	elasticities, err := json.Marshal(v.Elasticities)
	if err != nil {
		return "", fmt.Errorf("encoding elasticities: %w", err)
	}

	resultID := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO valuations (result_id, project_id, run_id, point_estimate, ci_lower, ci_upper, elasticities, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		resultID, v.ProjectID, v.RunID, v.PointEstimate,
		v.ConfidenceInterval.Lower, v.ConfidenceInterval.Upper, string(elasticities), s.now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting valuation for run %s: %w", v.RunID, err)
	}

	logger.Debug.With("Saved valuation", "result_id", resultID, "run_id", v.RunID)
	return resultID, nil
}

const selectModelRun = `
	SELECT run_id, project_id, target_column, feature_names, transform_config,
		r_squared, r_squared_adjusted, mae, rmse, num_observations, diagnostics, artifacts, created_at
	FROM model_runs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModelRun(row rowScanner) (*ModelRun, error) {
	var (
		run                                          ModelRun
		features, transforms, diagnostics, artifacts sql.NullString
		createdAt                                    int64
	)
	err := row.Scan(&run.RunID, &run.ProjectID, &run.TargetColumn, &features, &transforms,
		&run.Metrics.RSquared, &run.Metrics.RSquaredAdjusted, &run.Metrics.MAE, &run.Metrics.RMSE,
		&run.Metrics.NumOfObservations, &diagnostics, &artifacts, &createdAt)
	if err != nil {
		return nil, err
	}
	for _, field := range []struct {
		raw  sql.NullString
		dest interface{}
		name string
	}{
		{features, &run.FeatureNames, "feature names"},
		{transforms, &run.Transforms, "transform config"},
		{diagnostics, &run.Diagnostics, "diagnostics"},
		{artifacts, &run.Artifacts, "artifacts"},
	} {
		if !field.raw.Valid || field.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(field.raw.String), field.dest); err != nil {
			return nil, fmt.Errorf("decoding %s of run %s: %w", field.name, run.RunID, err)
		}
	}
	run.CreatedAt = time.Unix(0, createdAt)
	return &run, nil
}

// GetModelRun returns the run with the given ID or ErrNotFound.
func (s *DBService) GetModelRun(ctx context.Context, runID string) (*ModelRun, error) {
	run, err := scanModelRun(s.db.QueryRowContext(ctx, selectModelRun+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying model run %s: %w", runID, err)
	}
	return run, nil
}

// ListModelRuns returns the runs of a project, newest first.
func (s *DBService) ListModelRuns(ctx context.Context, projectID string) ([]*ModelRun, error) {
	rows, err := s.db.QueryContext(ctx, selectModelRun+` WHERE project_id = ? ORDER BY created_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying model runs of %s: %w", projectID, err)
	}
	defer rows.Close()

	var runs []*ModelRun
	for rows.Next() {
		run, err := scanModelRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning model run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListValuations returns the valuations of a run, newest first.
func (s *DBService) ListValuations(ctx context.Context, runID string) ([]*Valuation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result_id, project_id, run_id, point_estimate, ci_lower, ci_upper, elasticities, created_at
		FROM valuations WHERE run_id = ? ORDER BY created_at DESC, rowid DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying valuations of %s: %w", runID, err)
	}
	defer rows.Close()

	var valuations []*Valuation
	for rows.Next() {
		var (
			v            Valuation
			elasticities sql.NullString
			createdAt    int64
		)
		if err := rows.Scan(&v.ResultID, &v.ProjectID, &v.RunID, &v.PointEstimate,
			&v.ConfidenceInterval.Lower, &v.ConfidenceInterval.Upper, &elasticities, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning valuation: %w", err)
		}
		if elasticities.Valid && elasticities.String != "" {
			if err := json.Unmarshal([]byte(elasticities.String), &v.Elasticities); err != nil {
				return nil, fmt.Errorf("decoding elasticities of %s: %w", v.ResultID, err)
			}
		}
		v.CreatedAt = time.Unix(0, createdAt)
		valuations = append(valuations, &v)
	}
	return valuations, rows.Err()
}

// Close gracefully shuts down the database connection.
func (s *DBService) Close() error {
	return s.db.Close()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
