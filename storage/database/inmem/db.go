// Package inmemdb implements the repositories in memory, for tests and local runs without PostgreSQL.
package inmemdb

import (
	"sync"

	"github.com/llpmm/campus/core/assignment"
	"github.com/llpmm/campus/core/attendance"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/enrollment"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

// DB holds every table behind a single lock, so that operations spanning tables are atomic.
type DB struct {
	mutex sync.RWMutex

	users                 map[string]*user.User
	courses               map[string]*course.Course
	batches               map[string]*course.Batch
	expenses              map[string]*course.Expense
	enrollments           map[string]*enrollment.Enrollment
	payments              map[string]*payment.Payment // keyed by enrollment ID
	instructorPayments    map[string]*payment.InstructorPayment
	attendanceCodes       map[string]*attendance.Code
	attendanceSubmissions map[string]*attendance.Submission
	assignments           map[string]*assignment.Assignment
	submissions           map[string]*assignment.Submission
}

func NewDB() *DB {
	return &DB{
		users:                 make(map[string]*user.User),
		courses:               make(map[string]*course.Course),
		batches:               make(map[string]*course.Batch),
		expenses:              make(map[string]*course.Expense),
		enrollments:           make(map[string]*enrollment.Enrollment),
		payments:              make(map[string]*payment.Payment),
		instructorPayments:    make(map[string]*payment.InstructorPayment),
		attendanceCodes:       make(map[string]*attendance.Code),
		attendanceSubmissions: make(map[string]*attendance.Submission),
		assignments:           make(map[string]*assignment.Assignment),
		submissions:           make(map[string]*assignment.Submission),
	}
}

func (db *DB) countActiveEnrollments(batchID string) int {
	var n int
	for _, e := range db.enrollments {
		if e.BatchID == batchID && e.Status == enrollment.StatusActive {
			n++
		}
	}
	return n
}

func copyPayment(p payment.Payment) payment.Payment {
	p.Installments = append([]payment.Installment(nil), p.Installments...)
	return p
}
