package assignment

import (
	"errors"
	"sort"
	"strings"

	"github.com/civicgrid/grievance-engine/internal/database"
)

// ErrNoCandidateAvailable is returned when no active staff member can take the
// complaint. This is not fatal: the complaint stays in reported state awaiting
// manual assignment.
var ErrNoCandidateAvailable = errors.New("assignment: no candidate available")

// Snapshot is a point-in-time view of the roster and derived workloads. The
// resolver is a pure function over it, so results are reproducible in tests
// without a live store.
type Snapshot struct {
	Staff       []*database.Staff
	Departments []*database.Department
	Workloads   map[string]int
}

// Result is a resolved assignment.
type Result struct {
	StaffID    string
	Department string
}

// Resolve picks the officer for a new complaint: the department handling the
// category, in-ward officers first (department-wide fallback), minimum current
// workload, ties broken by highest rating then lowest id. Severity is accepted
// for interface stability but does not influence the pick.
func Resolve(snap Snapshot, category, ward, severity string) (Result, error) {
	_ = severity
	return pick(snap, database.RoleOfficer, category, ward)
}

// ResolveWorker picks a field worker for the complaint's category and ward
// using the same policy as Resolve.
func ResolveWorker(snap Snapshot, category, ward string) (Result, error) {
	return pick(snap, database.RoleWorker, category, ward)
}

// ResolveSupervisor picks the reviewing supervisor for an escalation by
// department, lowest pending-review load first.
func ResolveSupervisor(snap Snapshot, department string) (Result, error) {
	var candidates []*database.Staff
	for _, member := range snap.Staff {
		if member.Active && member.Role == database.RoleSupervisor && member.Department == department {
			candidates = append(candidates, member)
		}
	}
	if len(candidates) == 0 {
		return Result{}, ErrNoCandidateAvailable
	}
	best := pickLeastLoaded(candidates, snap.Workloads)
	return Result{StaffID: best.ID, Department: department}, nil
}

func pick(snap Snapshot, role, category, ward string) (Result, error) {
	department, ok := departmentFor(snap.Departments, category)
	if !ok {
		return Result{}, ErrNoCandidateAvailable
	}

	var inDepartment []*database.Staff
	for _, member := range snap.Staff {
		if member.Active && member.Role == role && member.Department == department {
			inDepartment = append(inDepartment, member)
		}
	}
	if len(inDepartment) == 0 {
		return Result{}, ErrNoCandidateAvailable
	}

	// Ward-local candidates take priority; fall back to the whole department.
	candidates := make([]*database.Staff, 0, len(inDepartment))
	for _, member := range inDepartment {
		if strings.EqualFold(member.Ward, ward) {
			candidates = append(candidates, member)
		}
	}
	if len(candidates) == 0 {
		candidates = inDepartment
	}

	best := pickLeastLoaded(candidates, snap.Workloads)
	return Result{StaffID: best.ID, Department: department}, nil
}

func departmentFor(departments []*database.Department, category string) (string, bool) {
	for _, dept := range departments {
		for _, handled := range dept.Categories {
			if strings.EqualFold(handled, category) {
				return dept.ID, true
			}
		}
	}
	return "", false
}

// pickLeastLoaded orders candidates by workload ascending, rating descending,
// id ascending, making the choice deterministic for a given snapshot.
func pickLeastLoaded(candidates []*database.Staff, workloads map[string]int) *database.Staff {
	sorted := make([]*database.Staff, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		wi, wj := workloads[sorted[i].ID], workloads[sorted[j].ID]
		if wi != wj {
			return wi < wj
		}
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}
