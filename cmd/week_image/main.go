package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/render"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	flag "github.com/spf13/pflag"
)

func main() {
	out := flag.StringP("out", "o", "week.png", "output file")
	studioID := flag.String("studio", model.DefaultStudios[0].ID, "studio id from the default catalog")
	flag.Parse()

	catalog, err := service.NewStudioCatalog(nil)
	if err != nil {
		fail("catalog: %v", err)
	}
	studio, ok := catalog.Get(*studioID)
	if !ok {
		fail("unknown studio %q", *studioID)
	}

	ctx := context.Background()
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))

	repo := inmem.NewSessionRepository(inmem.Open())

	// a few bookings spread over the week, one of them canceled
	samples := []struct {
		day      int
		slot     string
		canceled bool
	}{
		{0, "09:00", false},
		{0, "14:00", false},
		{1, "16:00", true},
		{2, "09:00", false},
		{2, "15:00", false},
		{4, "11:00", false},
		{4, "13:00", false},
		{5, "10:00", false},
	}
	for _, s := range samples {
		session := &model.StudioSession{
			StudioID:      studio.ID,
			StudioName:    studio.Name,
			ProfessorID:   1,
			ProfessorName: "Demo Professor",
			Date:          monday.AddDate(0, 0, s.day),
			Time:          s.slot,
			Status:        model.SessionStatusActive,
			Students:      map[int64]model.StudentResponse{2: {Status: model.ResponsePending}},
		}
		if err := repo.Create(ctx, session); err != nil {
			fail("seed session: %v", err)
		}
		if s.canceled {
			if err := repo.Cancel(ctx, session.ID, "demo"); err != nil {
				fail("cancel session: %v", err)
			}
		}
	}

	checker := service.NewAvailabilityChecker(repo, now.Location())
	grid, err := checker.Week(ctx, studio.ID, today, now)
	if err != nil {
		fail("build week: %v", err)
	}

	img, err := render.WeekImage(grid, studio.Name, now)
	if err != nil {
		fail("render: %v", err)
	}
	if err := os.WriteFile(*out, img, 0644); err != nil {
		fail("write %s: %v", *out, err)
	}

	fmt.Printf("✅ Saved %s\n", *out)
	fmt.Printf("📅 Week: %s - %s\n", monday.Format("02.01.2006"), monday.AddDate(0, 0, 6).Format("02.01.2006"))
	fmt.Printf("📊 Sessions: %d\n", len(samples))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}
