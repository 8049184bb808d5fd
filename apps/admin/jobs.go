package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) markOverdue() error {
	n, err := cli.paymentSvc.MarkOverdue(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d installment(s) marked overdue\n", n)
	return nil
}

func (cli *commandLine) evaluateCertificates(batchID string) error {
	results, err := cli.certificateSvc.EvaluateBatch(context.Background(), batchID)
	if err != nil {
		return err
	}
	var changed int
	for _, res := range results {
		if res.Changed {
			changed++
		}
		fmt.Fprintf(cli.out, "%s\tattendance %.1f%%\tassignments %.1f%%\teligible %t\n",
			res.Metrics.EnrollmentID, res.Metrics.AttendanceRate, res.Metrics.AssignmentRate, res.Metrics.IsEligible)
	}
	fmt.Fprintf(cli.out, "%d enrollment(s) evaluated, %d changed\n", len(results), changed)
	return nil
}
