package services

import (
	"context"
	"sync"
	"time"

	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
)

type DayHabit struct {
	models.Habit
	Completed bool `json:"completed"`
}

type DayView struct {
	Date       string             `json:"date"`
	IsToday    bool               `json:"is_today"`
	Habits     []DayHabit         `json:"habits"`
	Reflection *models.Reflection `json:"reflection"`
}

// DayService assembles everything shown for one calendar date.
type DayService struct {
	habits      *HabitRegistry
	completions *CompletionEngine
	reflections *ReflectionLog
	now         func() time.Time
}

func NewDayService(habits *HabitRegistry, completions *CompletionEngine, reflections *ReflectionLog) *DayService {
	return &DayService{
		habits:      habits,
		completions: completions,
		reflections: reflections,
		now:         time.Now,
	}
}

// View loads the habits scheduled on date with their completion state and
// the latest reflection. The three reads run concurrently.
func (s *DayService) View(ctx context.Context, ownerID, date string) (*DayView, error) {
	startTime := time.Now()

	var (
		wg          sync.WaitGroup
		habits      []models.Habit
		completions CompletionSnapshot
		reflection  *models.Reflection
	)
	errs := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if habits, err = s.habits.List(ctx, ownerID); err != nil {
			errs <- err
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if completions, err = s.completions.List(ctx, ownerID, date); err != nil {
			errs <- err
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if reflection, err = s.reflections.Latest(ctx, ownerID, date); err != nil {
			errs <- err
		}
	}()

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	view := &DayView{
		Date:       date,
		IsToday:    date == utils.FormatDate(s.now().UTC()),
		Habits:     []DayHabit{},
		Reflection: reflection,
	}
	for _, h := range habits {
		if !VisibleOn(&h, date) {
			continue
		}
		view.Habits = append(view.Habits, DayHabit{
			Habit:     h,
			Completed: completions.IsCompleted(h.ID, date),
		})
	}

	utils.Logger.Debug("day_view_built",
		zap.String("user_id", ownerID),
		zap.String("date", date),
		zap.Int("habits", len(view.Habits)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return view, nil
}
