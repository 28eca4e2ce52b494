package services

import (
	"testing"
	"time"

	"contas/internal/core"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{
			name: "plain month",
			from: core.NewDate(2024, 1, 15),
			n:    1,
			want: core.NewDate(2024, 2, 15),
		},
		{
			name: "jan 31 clamps to leap february",
			from: core.NewDate(2024, 1, 31),
			n:    1,
			want: core.NewDate(2024, 2, 29),
		},
		{
			name: "jan 31 clamps to short february",
			from: core.NewDate(2023, 1, 31),
			n:    1,
			want: core.NewDate(2023, 2, 28),
		},
		{
			name: "two months from jan 31 keeps day",
			from: core.NewDate(2024, 1, 31),
			n:    2,
			want: core.NewDate(2024, 3, 31),
		},
		{
			name: "year rollover",
			from: core.NewDate(2024, 11, 30),
			n:    3,
			want: core.NewDate(2025, 2, 28),
		},
		{
			name: "feb 29 plus twelve months clamps",
			from: core.NewDate(2024, 2, 29),
			n:    12,
			want: core.NewDate(2025, 2, 28),
		},
		{
			name: "feb 29 plus forty-eight months restores",
			from: core.NewDate(2024, 2, 29),
			n:    48,
			want: core.NewDate(2028, 2, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonths(tt.from, tt.n)
			if !got.Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.from, tt.n, got, tt.want)
			}
		})
	}
}

func TestSteppersKeepTemplateDay(t *testing.T) {
	// Stepping is indexed from the template start, so a clamped step does
	// not shift later steps off the original day-of-month.
	start := core.NewDate(2024, 1, 31)
	stepper := MonthlyStepper{}

	got := []time.Time{
		stepper.Step(start, 0),
		stepper.Step(start, 1),
		stepper.Step(start, 2),
	}
	want := []time.Time{
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 2, 29),
		core.NewDate(2024, 3, 31),
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("step %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWeeklyStepper(t *testing.T) {
	start := core.NewDate(2024, 1, 1)
	if got := (WeeklyStepper{}).Step(start, 3); !got.Equal(core.NewDate(2024, 1, 22)) {
		t.Errorf("weekly step 3 = %v", got)
	}
}

func TestQuarterlyStepper(t *testing.T) {
	start := core.NewDate(2024, 11, 30)
	if got := (QuarterlyStepper{}).Step(start, 1); !got.Equal(core.NewDate(2025, 2, 28)) {
		t.Errorf("quarterly step 1 = %v", got)
	}
}

func TestStepperFor(t *testing.T) {
	tests := []struct {
		name     string
		interval core.Interval
		wantErr  bool
	}{
		{"weekly", core.Weekly, false},
		{"monthly", core.Monthly, false},
		{"quarterly", core.Quarterly, false},
		{"yearly", core.Yearly, false},
		{"unknown", core.Interval("daily"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stepper, err := StepperFor(tt.interval)
			if (err != nil) != tt.wantErr {
				t.Errorf("StepperFor() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && stepper == nil {
				t.Error("StepperFor() returned nil stepper")
			}
		})
	}
}
