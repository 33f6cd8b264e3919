// Package report writes experiment results to disk: a JSON summary plus CSV
// files carrying the loss-curve and prediction-vs-theory data that plotting
// tools consume.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/contactkeval/option-surrogate/internal/experiment"
)

// WriteJSON writes the full result summary to summary.json.
func WriteJSON(res *experiment.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "summary.json"), b, 0644)
}

// WriteHistoryCSV writes the per-epoch training MSE to loss_history.csv.
func WriteHistoryCSV(history []float64, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "loss_history.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"epoch", "mse"}); err != nil {
		return err
	}
	for i, mse := range history {
		row := []string{fmt.Sprintf("%d", i+1), fmt.Sprintf("%g", mse)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteComparisonCSV writes the holdout prediction-vs-theory table to
// comparison.csv.
func WriteComparisonCSV(rows []experiment.ComparisonRow, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "comparison.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"spot", "strike", "time_to_maturity", "theoretical", "predicted", "abs_error"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			fmt.Sprintf("%.4f", r.Spot),
			fmt.Sprintf("%.4f", r.Strike),
			fmt.Sprintf("%.6f", r.TimeToMaturity),
			fmt.Sprintf("%.6f", r.Theoretical),
			fmt.Sprintf("%.6f", r.Predicted),
			fmt.Sprintf("%.6f", r.AbsError),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
