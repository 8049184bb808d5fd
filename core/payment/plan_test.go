package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core"
)

var enrolledOn = time.Date(2024, time.March, 1, 15, 4, 5, 0, time.UTC)

func TestGeneratePlan(t *testing.T) {
	day := core.TruncateDay(enrolledOn)
	fourWeeksLater := day.AddDate(0, 0, 28)

	tests := []struct {
		name           string
		req            PlanRequest
		wantAmounts    []int64
		wantDueDates   []time.Time
		wantInstStatus []InstallmentStatus
		wantStatus     Status
		wantPaid       int64
		wantTotal      int64
	}{
		{
			name:           "installments, even total",
			req:            PlanRequest{BaseAmount: 150000, PlanType: PlanInstallment2, EnrolledDate: enrolledOn},
			wantAmounts:    []int64{75000, 75000},
			wantDueDates:   []time.Time{day, fourWeeksLater},
			wantInstStatus: []InstallmentStatus{InstallmentPending, InstallmentPending},
			wantStatus:     StatusUnpaid,
			wantTotal:      150000,
		},
		{
			name:           "installments, odd total",
			req:            PlanRequest{BaseAmount: 150001, PlanType: PlanInstallment2, EnrolledDate: enrolledOn},
			wantAmounts:    []int64{75001, 75000},
			wantDueDates:   []time.Time{day, fourWeeksLater},
			wantInstStatus: []InstallmentStatus{InstallmentPending, InstallmentPending},
			wantStatus:     StatusUnpaid,
			wantTotal:      150001,
		},
		{
			name: "full with discount, paid at enrollment",
			req: PlanRequest{
				BaseAmount:     150000,
				DiscountAmount: 30000,
				PlanType:       PlanFull,
				EnrolledDate:   enrolledOn,
				Initial:        &Record{PaymentMethod: "cash"},
			},
			wantAmounts:    []int64{120000},
			wantDueDates:   []time.Time{day},
			wantInstStatus: []InstallmentStatus{InstallmentPaid},
			wantStatus:     StatusPaid,
			wantPaid:       120000,
			wantTotal:      120000,
		},
		{
			name: "installments, first paid at enrollment",
			req: PlanRequest{
				BaseAmount:   100000,
				PlanType:     PlanInstallment2,
				EnrolledDate: enrolledOn,
				Initial:      &Record{PaymentMethod: "bank_transfer"},
			},
			wantAmounts:    []int64{50000, 50000},
			wantDueDates:   []time.Time{day, fourWeeksLater},
			wantInstStatus: []InstallmentStatus{InstallmentPaid, InstallmentPending},
			wantStatus:     StatusPartial,
			wantPaid:       50000,
			wantTotal:      100000,
		},
		{
			name:           "fully discounted",
			req:            PlanRequest{BaseAmount: 50000, DiscountAmount: 50000, PlanType: PlanFull, EnrolledDate: enrolledOn},
			wantAmounts:    []int64{0},
			wantDueDates:   []time.Time{day},
			wantInstStatus: []InstallmentStatus{InstallmentPaid},
			wantStatus:     StatusPaid,
		},
		{
			name:           "total of one unit split in two",
			req:            PlanRequest{BaseAmount: 1, PlanType: PlanInstallment2, EnrolledDate: enrolledOn},
			wantAmounts:    []int64{1, 0},
			wantDueDates:   []time.Time{day, fourWeeksLater},
			wantInstStatus: []InstallmentStatus{InstallmentPending, InstallmentPaid},
			wantStatus:     StatusUnpaid,
			wantTotal:      1,
		},
		{
			name: "custom delay",
			req: PlanRequest{
				BaseAmount:             1000,
				PlanType:               PlanInstallment2,
				EnrolledDate:           enrolledOn,
				SecondInstallmentDelay: 7 * 24 * time.Hour,
			},
			wantAmounts:    []int64{500, 500},
			wantDueDates:   []time.Time{day, day.AddDate(0, 0, 7)},
			wantInstStatus: []InstallmentStatus{InstallmentPending, InstallmentPending},
			wantStatus:     StatusUnpaid,
			wantTotal:      1000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := GeneratePlan(tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, p.TotalAmount)
			assert.Equal(t, tt.wantPaid, p.PaidAmount)
			assert.Equal(t, tt.wantStatus, p.Status)
			require.Len(t, p.Installments, len(tt.wantAmounts))

			var sum int64
			for i, inst := range p.Installments {
				assert.Equal(t, i+1, inst.Number)
				assert.Equal(t, tt.wantAmounts[i], inst.Amount, "installment %d amount", i+1)
				assert.True(t, tt.wantDueDates[i].Equal(inst.DueDate), "installment %d due %v, want %v", i+1, inst.DueDate, tt.wantDueDates[i])
				assert.Equal(t, tt.wantInstStatus[i], inst.Status, "installment %d status", i+1)
				if inst.IsPaid() {
					assert.NotNil(t, inst.PaidDate)
					assert.NotEmpty(t, inst.PaymentMethod)
				} else {
					assert.Nil(t, inst.PaidDate)
				}
				sum += inst.Amount
			}
			assert.Equal(t, p.TotalAmount, sum, "installments must add up to the total")
		})
	}
}

func TestGeneratePlan_invalid(t *testing.T) {
	tests := []struct {
		name    string
		req     PlanRequest
		wantErr error
	}{
		{name: "no fee", req: PlanRequest{PlanType: PlanFull}, wantErr: ErrInvalidBaseAmount},
		{name: "negative fee", req: PlanRequest{BaseAmount: -10, PlanType: PlanFull}, wantErr: ErrInvalidBaseAmount},
		{name: "negative discount", req: PlanRequest{BaseAmount: 10, DiscountAmount: -1, PlanType: PlanFull}, wantErr: ErrNegativeDiscount},
		{name: "discount above fee", req: PlanRequest{BaseAmount: 10, DiscountAmount: 11, PlanType: PlanFull}, wantErr: ErrDiscountExceedsFee},
		{name: "unknown plan", req: PlanRequest{BaseAmount: 10, PlanType: "installment_3"}, wantErr: ErrInvalidPlanType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeneratePlan(tt.req)
			assert.Equal(t, tt.wantErr, err)
			assert.True(t, core.IsValidation(err))
		})
	}
}

func TestSplitInTwo(t *testing.T) {
	for _, total := range []int64{0, 1, 2, 3, 99, 100, 150000, 150001, 999999999} {
		first, second := SplitInTwo(total)
		assert.Equal(t, total, first+second, "total %d", total)
		assert.GreaterOrEqual(t, first, second, "total %d", total)
		assert.LessOrEqual(t, first-second, int64(1), "total %d", total)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		paid, total int64
		want        Status
	}{
		{paid: 0, total: 100, want: StatusUnpaid},
		{paid: 1, total: 100, want: StatusPartial},
		{paid: 99, total: 100, want: StatusPartial},
		{paid: 100, total: 100, want: StatusPaid},
		{paid: 0, total: 0, want: StatusPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.paid, tt.total), "DeriveStatus(%d, %d)", tt.paid, tt.total)
	}
}
