package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"davinci-allocation/internal/directory"
	"davinci-allocation/internal/domain"
	"davinci-allocation/internal/ingest"

	"github.com/spf13/pflag"
)

func main() {
	out := pflag.StringP("out", "o", "data/sample_job_forms.xlsx", "job form workbook to write")
	teachers := pflag.String("teachers", "data/mock_teachers.json", "mock teacher roster to write (empty to skip)")
	seed := pflag.Int64("seed", 42, "seed for the mock roster")
	pflag.Parse()

	if err := run(context.Background(), *out, *teachers, *seed, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "create-sample-data: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out, teachersPath string, seed int64, now time.Time) error {
	data, err := ingest.WriteJobForms(sampleJobForms(now))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Sample data created at %s\n", out)

	if teachersPath != "" {
		if err := directory.SaveMockTeachers(ctx, teachersPath, directory.GenerateMockTeachers(seed)); err != nil {
			return err
		}
		fmt.Printf("Mock teacher roster created at %s\n", teachersPath)
	}
	return nil
}

func sampleJobForms(now time.Time) []domain.AllocationInput {
	day := func(n int) string { return now.AddDate(0, 0, n).Format("2006-01-02") }
	return []domain.AllocationInput{
		{
			StudentName:         "Britney Blue Cheese",
			StudentEmail:        "britney.bluecheese@example.com",
			GuardianEmail:       "parent.bluecheese@example.com",
			RequestEmail:        "ao.bluecheese@cga.edu",
			Subjects:            []string{"US Junior High English 7", "US Junior High Math 8", "US Junior High Earth and Space Science 7"},
			StartDate:           day(7),
			PackageHours:        20,
			SessionFrequency:    "2 times 1 hour sessions per week",
			StudentAvailability: "Monday-Friday, 3:00 PM - 7:00 PM EST",
			HolidaySchedule:     "Unavailable Dec 20 - Jan 5, Spring Break March 15-22",
			AdditionalNotes:     "Student prefers female teachers for English. Coordinating with other activities so schedule must be consistent.",
		},
		{
			StudentName:         "Alex Appleton",
			StudentEmail:        "alex.appleton@example.com",
			GuardianEmail:       "parent.appleton@example.com",
			RequestEmail:        "ao.appleton@cga.edu",
			Subjects:            []string{"US Junior High Math 7", "US Junior High English 7"},
			StartDate:           day(10),
			PackageHours:        16,
			SessionFrequency:    "2 times 1 hour sessions per week",
			StudentAvailability: "Tuesday, Thursday, Saturday 4:00 PM - 8:00 PM EST",
			HolidaySchedule:     "Unavailable Nov 23-27, Dec 22 - Jan 3",
			AdditionalNotes:     "Student has ADHD, prefers shorter sessions with breaks.",
		},
		{
			StudentName:         "Charlie Chen",
			StudentEmail:        "charlie.chen@example.com",
			GuardianEmail:       "parent.chen@example.com",
			RequestEmail:        "ao.chen@cga.edu",
			Subjects:            []string{"US Junior High Science 8"},
			StartDate:           day(5),
			PackageHours:        10,
			SessionFrequency:    "1 time 1 hour session per week",
			StudentAvailability: "Monday, Wednesday, Friday 5:00 PM - 9:00 PM EST",
			HolidaySchedule:     "Unavailable Dec 15 - Jan 10",
			AdditionalNotes:     "Student has advanced knowledge in biology but needs help with physics concepts.",
		},
		{
			StudentName:         "Dakota Devon",
			StudentEmail:        "dakota.devon@example.com",
			GuardianEmail:       "parent.devon@example.com",
			RequestEmail:        "ao.devon@cga.edu",
			Subjects:            []string{"US Junior High Math 8", "US Junior High English 8"},
			StartDate:           day(14),
			PackageHours:        24,
			SessionFrequency:    "3 times 1 hour sessions per week",
			StudentAvailability: "Weekdays 2:00 PM - 6:00 PM EST",
			HolidaySchedule:     "Unavailable Dec 18 - Jan 2",
			AdditionalNotes:     "Student is advanced in math but struggles with English comprehension.",
		},
		{
			StudentName:         "Eliot Edwards",
			StudentEmail:        "eliot.edwards@example.com",
			GuardianEmail:       "parent.edwards@example.com",
			RequestEmail:        "ao.edwards@cga.edu",
			Subjects:            []string{"US Junior High English 7", "US Junior High Science 7"},
			StartDate:           day(2),
			PackageHours:        15,
			SessionFrequency:    "1 time 1.5 hour session per week",
			StudentAvailability: "Monday, Thursday 3:30 PM - 7:30 PM EST",
			HolidaySchedule:     "Unavailable Dec 21 - Jan 4, April 10-17",
			AdditionalNotes:     "Student prefers visual learning approaches. Needs extra support with writing.",
		},
	}
}
