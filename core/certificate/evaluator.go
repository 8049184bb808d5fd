package certificate

import (
	"time"

	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
)

type Thresholds struct {
	MinAttendanceRate float64 // percent
	MinAssignmentRate float64 // percent
}

// DefaultThresholds requires 90% attendance and 90% of the assignments.
var DefaultThresholds = Thresholds{MinAttendanceRate: 90, MinAssignmentRate: 90}

// Input gathers the ID sets an evaluation is computed from.
// Student sets may span other batches: only their intersection with the batch sets is counted.
type Input struct {
	Batch                course.Batch
	BatchCodeIDs         []string
	StudentCodeIDs       []string
	BatchAssignmentIDs   []string
	StudentAssignmentIDs []string
	Today                time.Time
}

type Metrics struct {
	EnrollmentID         string  `json:"enrollment_id"`
	AttendedCodes        int     `json:"attended_codes"`
	TotalCodes           int     `json:"total_codes"`
	CompletedAssignments int     `json:"completed_assignments"`
	TotalAssignments     int     `json:"total_assignments"`
	AttendanceRate       float64 `json:"attendance_rate"`
	AssignmentRate       float64 `json:"assignment_rate"`
	BatchEnded           bool    `json:"batch_ended"`
	IsEligible           bool    `json:"is_eligible"`
}

// Evaluate computes the certificate metrics of one student in one batch.
// It has no side effects: the same input always yields the same metrics.
func Evaluate(in Input, th Thresholds) Metrics {
	m := Metrics{
		TotalCodes:       countDistinct(in.BatchCodeIDs),
		TotalAssignments: countDistinct(in.BatchAssignmentIDs),
		AttendedCodes:    intersectCount(in.BatchCodeIDs, in.StudentCodeIDs),
		BatchEnded:       in.Batch.Ended(in.Today),
	}
	m.CompletedAssignments = intersectCount(in.BatchAssignmentIDs, in.StudentAssignmentIDs)
	m.AttendanceRate = Rate(m.AttendedCodes, m.TotalCodes)
	m.AssignmentRate = Rate(m.CompletedAssignments, m.TotalAssignments)
	m.IsEligible = m.BatchEnded &&
		meets(m.AttendedCodes, m.TotalCodes, th.MinAttendanceRate) &&
		meets(m.CompletedAssignments, m.TotalAssignments, th.MinAssignmentRate)
	return m
}

// Rate returns n/d as a percentage, 0 when d is 0.
func Rate(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) * 100 / float64(d)
}

// meets compares n/d with a percentage threshold without dividing.
func meets(n, d int, min float64) bool {
	if d <= 0 {
		return min <= 0
	}
	return float64(n)*100 >= min*float64(d)
}

func countDistinct(ids []string) int {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return len(set)
}

func intersectCount(set, ids []string) int {
	in := make(map[string]bool, len(set))
	for _, id := range set {
		in[id] = true
	}
	var n int
	for _, id := range ids {
		if in[id] {
			n++
			in[id] = false // count once
		}
	}
	return n
}

// Sync aligns the certificate of e with eligible and tells whether anything changed.
// An uploaded certificate is never touched.
func Sync(e *enrollment.Enrollment, eligible bool, now time.Time) bool {
	if e.CertificateSource == enrollment.CertificateUploaded {
		return false
	}
	if eligible {
		if e.Certificate && e.CertificateSource == enrollment.CertificateGenerated && e.CertificateIssuedAt != nil {
			return false
		}
		e.Certificate = true
		e.CertificateSource = enrollment.CertificateGenerated
		if e.CertificateIssuedAt == nil {
			issued := now
			e.CertificateIssuedAt = &issued
		}
		return true
	}
	if !e.Certificate && e.CertificateSource == "" && e.CertificateIssuedAt == nil {
		return false
	}
	e.Certificate = false
	e.CertificateSource = ""
	e.CertificateIssuedAt = nil
	return true
}

// RecordUpload marks e as holding a manually uploaded certificate.
func RecordUpload(e *enrollment.Enrollment, url string, now time.Time) {
	issued := now
	e.Certificate = true
	e.CertificateSource = enrollment.CertificateUploaded
	e.CertificateURL = url
	e.CertificateIssuedAt = &issued
}
