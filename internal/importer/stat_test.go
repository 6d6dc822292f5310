package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStat(t *testing.T) {
	ctx := context.Background()
	bucket := &fakeBucket{objects: map[string]int64{
		"cohen/mussar-5784/01_intro.mp3":   2048,
		"cohen/mussar-5784/02_walking.mp3": 4096,
	}}

	m := testManifest()
	report, err := Stat(ctx, bucket, m, 0)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if report.Statted != 2 || report.TotalBytes != 6144 {
		t.Fatalf("report: %+v", report)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "levi/halacha/01_candles.m4a" {
		t.Fatalf("missing keys: %+v", report.Missing)
	}

	lectures := m.AllLectures()
	if lectures[0].Missing() || lectures[0].SizeBytes != 2048 {
		t.Fatalf("first lecture after stat: missing=%v size=%d", lectures[0].Missing(), lectures[0].SizeBytes)
	}
	if !lectures[2].Missing() {
		t.Fatalf("absent object not flagged")
	}
}

func TestStatErrorPropagates(t *testing.T) {
	ctx := context.Background()
	bucket := &fakeBucket{statErr: errors.New("connection refused")}

	_, err := Stat(ctx, bucket, testManifest(), 2)
	if err == nil || !strings.Contains(err.Error(), "stat ") {
		t.Fatalf("stat error: %v", err)
	}
}
