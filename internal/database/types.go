package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/civicgrid/grievance-engine/internal/config"
)

// Connect establishes a database connection
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// RunMigrations runs database migrations
func RunMigrations(cfg config.DatabaseConfig, logger *slog.Logger) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations applied")
	return nil
}

// BaseRepository carries the shared database handle
type BaseRepository struct {
	db *sqlx.DB
}

// Transaction executes a function within a database transaction
func (r *BaseRepository) Transaction(fn func(*sqlx.Tx) error) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// Status is the complaint state-machine field
type Status string

const (
	StatusReported            Status = "reported"
	StatusAssigned            Status = "assigned"
	StatusInProgress          Status = "in_progress"
	StatusAwaitingSupervisor  Status = "awaiting_supervisor"
	StatusResolved            Status = "resolved"
	StatusClosed              Status = "closed"
	StatusRejected            Status = "rejected"
	StatusDuplicate           Status = "duplicate"
	StatusUnverified          Status = "unverified"
)

// AllStatuses lists every legal status value.
var AllStatuses = []Status{
	StatusReported, StatusAssigned, StatusInProgress, StatusAwaitingSupervisor,
	StatusResolved, StatusClosed, StatusRejected, StatusDuplicate, StatusUnverified,
}

// IsTerminal reports whether the status admits no further transitions. Terminal
// complaints are retained for audit, never deleted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusClosed, StatusRejected, StatusDuplicate, StatusUnverified:
		return true
	}
	return false
}

// ClockRunning reports whether the SLA clock is active in this status. The
// invariant is: sla_deadline is non-nil iff ClockRunning.
func (s Status) ClockRunning() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusAwaitingSupervisor:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Severity levels for a complaint
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// Supervisor review outcomes
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// Actor roles recorded on timeline events
const (
	RoleCitizen    = "citizen"
	RoleOfficer    = "officer"
	RoleWorker     = "worker"
	RoleSupervisor = "supervisor"
	RoleSystem     = "system"
)

// VisibilityFlags is a set of citizen-chosen publication toggles stored as JSONB.
type VisibilityFlags map[string]bool

func (v VisibilityFlags) Value() (driver.Value, error) {
	if v == nil {
		return "{}", nil
	}
	return json.Marshal(v)
}

func (v *VisibilityFlags) Scan(value interface{}) error {
	if value == nil {
		*v = VisibilityFlags{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan visibility flags: unexpected type %T", value)
	}
	return json.Unmarshal(bytes, v)
}

// Location is the reported coordinates plus an optional human label.
type Location struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	Address   *string `db:"address" json:"address,omitempty"`
	Label     *string `db:"area_label" json:"label,omitempty"`
}

// Complaint is the aggregate at the center of the lifecycle. It is mutated
// exclusively through lifecycle transitions; Version backs the optimistic
// concurrency check on every write.
type Complaint struct {
	ID                 string          `db:"id" json:"id"`
	Category           string          `db:"category" json:"category"`
	Severity           string          `db:"severity" json:"severity"`
	Description        string          `db:"description" json:"description"`
	Location           `json:"location"`
	Ward               string          `db:"ward" json:"ward"`
	AffectedAreaType   string          `db:"affected_area_type" json:"affected_area_type"`
	DurationBucket     string          `db:"duration_bucket" json:"issue_duration_bucket"`
	VisibilityFlags    VisibilityFlags `db:"visibility_flags" json:"visibility_flags"`
	CitizenRef         string          `db:"citizen_ref" json:"citizen_ref"`
	Status             Status          `db:"status" json:"status"`
	AssignedOfficerID  *string         `db:"assigned_officer_id" json:"assigned_officer_id,omitempty"`
	AssignedWorkerID   *string         `db:"assigned_worker_id" json:"assigned_worker_id,omitempty"`
	AssignedDepartment *string         `db:"assigned_department" json:"assigned_department,omitempty"`
	SLADeadline        *time.Time      `db:"sla_deadline" json:"sla_deadline,omitempty"`
	SLABreached        bool            `db:"sla_breached" json:"sla_breached"`
	SupervisorID       *string         `db:"supervisor_id" json:"supervisor_id,omitempty"`
	SupervisorStatus   *string         `db:"supervisor_status" json:"supervisor_status,omitempty"`
	SupervisorDeadline *time.Time      `db:"supervisor_deadline" json:"supervisor_deadline,omitempty"`
	SupervisorOverdue  bool            `db:"supervisor_overdue" json:"supervisor_overdue"`
	CanonicalID        *string         `db:"canonical_id" json:"canonical_id,omitempty"`
	ResolvedAt         *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
	ClosedAt           *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
	Version            int             `db:"version" json:"version"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// EffectiveSLABreached reports the breach flag recomputed against now, so reads
// never lag behind the scheduler tick.
func (c *Complaint) EffectiveSLABreached(now time.Time) bool {
	if c.SLABreached {
		return true
	}
	return c.SLADeadline != nil && c.Status.ClockRunning() && now.After(*c.SLADeadline)
}

// EffectiveSupervisorOverdue reports the review-overdue flag recomputed against now.
func (c *Complaint) EffectiveSupervisorOverdue(now time.Time) bool {
	if c.SupervisorOverdue {
		return true
	}
	return c.Status == StatusAwaitingSupervisor &&
		c.SupervisorDeadline != nil && now.After(*c.SupervisorDeadline)
}

// TimelineEvent is one append-only audit entry owned by a single complaint.
// Seq is the per-complaint sequence; events are never mutated or removed.
type TimelineEvent struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	Seq         int       `db:"seq" json:"seq"`
	Actor       string    `db:"actor" json:"actor"`
	ActorRole   string    `db:"actor_role" json:"actor_role"`
	Action      string    `db:"action" json:"action"`
	Details     *string   `db:"details" json:"details,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Staff is an officer, field worker, or supervisor. Complaints reference staff
// by id only; assignment changes never touch the staff record.
type Staff struct {
	ID         string  `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Role       string  `db:"role" json:"role"`
	Department string  `db:"department" json:"department"`
	Ward       string  `db:"ward" json:"ward"`
	Rating     float64 `db:"rating" json:"rating"`
	Active     bool    `db:"active" json:"active"`
}

// Department groups staff by the complaint categories it handles.
type Department struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Categories pq.StringArray `db:"categories" json:"categories"`
}

// Filter narrows complaint list queries
type Filter struct {
	Statuses    []Status
	Department  string
	Ward        string
	Category    string
	SLABreached *bool
	// Now is the instant SLABreached is evaluated against; a deadline that
	// has passed counts as breached even before the scheduler flags it.
	// Zero means use wall-clock time.
	Now      time.Time
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}
