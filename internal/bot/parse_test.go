package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"vine_monitor/internal/model"
)

func TestParseASIN(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    string
		wantErr bool
	}{
		{name: "upper case", args: "B0KAYAK001", want: "B0KAYAK001"},
		{name: "lower case normalised", args: "b0kayak001", want: "B0KAYAK001"},
		{name: "extra words ignored", args: "B0KAYAK001 please", want: "B0KAYAK001"},
		{name: "empty", args: "  ", wantErr: true},
		{name: "punctuation", args: "B0-KAYAK", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseASIN(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseASIN() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTypeArg(t *testing.T) {
	tests := []struct {
		args    string
		want    model.TypeFilter
		wantErr bool
	}{
		{args: "all", want: model.TypeShowAll},
		{args: "Regular", want: model.TypeRegular},
		{args: "zero", want: model.TypeZeroETV},
		{args: "highlight", want: model.TypeHighlight},
		{args: " important ", want: model.TypeHighlightOrZeroETV},
		{args: "pinned", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got, err := ParseTypeArg(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTypeArg() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseQueueArg(t *testing.T) {
	if q, err := ParseQueueArg("ALL"); err != nil || q != model.QueueShowAll {
		t.Errorf("ParseQueueArg(ALL) = (%q, %v)", q, err)
	}
	if q, err := ParseQueueArg("encore"); err != nil || q != "encore" {
		t.Errorf("ParseQueueArg(encore) = (%q, %v)", q, err)
	}
	if _, err := ParseQueueArg(""); err == nil {
		t.Error("expected error for empty queue")
	}
}

func TestParsePriceArgs(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		args    string
		wantMin *float64
		wantMax *float64
		wantErr bool
	}{
		{name: "both bounds", args: "0 10", wantMin: f(0), wantMax: f(10)},
		{name: "min only", args: "5 -", wantMin: f(5)},
		{name: "max only", args: "- 25.5", wantMax: f(25.5)},
		{name: "off", args: "off"},
		{name: "no bounds", args: "- -", wantErr: true},
		{name: "inverted", args: "10 5", wantErr: true},
		{name: "negative", args: "-3 5", wantErr: true},
		{name: "not a number", args: "cheap 5", wantErr: true},
		{name: "missing max", args: "5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotMax, err := ParsePriceArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantMin, gotMin); diff != "" {
				t.Errorf("min mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMax, gotMax); diff != "" {
				t.Errorf("max mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
