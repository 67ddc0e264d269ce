package taskservice

import (
	"context"
	"math"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/taskapi/tasksvc"
	"github.com/ichigozero/taskapi/validation"
)

// Service manages the tasks of one user at a time. userID is always the
// authorized identity of the caller.
type Service interface {
	CreateTask(ctx context.Context, userID uint64, title, description string) (tasksvc.Task, error)
	Tasks(ctx context.Context, userID uint64, page, perPage int) ([]tasksvc.Task, error)
	Task(ctx context.Context, userID, taskID uint64) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uint64, patch tasksvc.TaskPatch) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uint64) error
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t}
}

func (s basicService) CreateTask(ctx context.Context, userID uint64, title, description string) (tasksvc.Task, error) {
	if userID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if err := validateTitle(title); err != nil {
		return tasksvc.Task{}, err
	}

	return s.tasks.Create(ctx, tasksvc.Task{
		Title:       strings.TrimSpace(title),
		Description: description,
		OwnerID:     userID,
	})
}

// Tasks lists one page of the user's tasks in creation order. Pages start at
// 1; perPage is capped at tasksvc.MaxPerPage.
func (s basicService) Tasks(ctx context.Context, userID uint64, page, perPage int) ([]tasksvc.Task, error) {
	if userID == 0 || page < 1 || perPage < 1 {
		return nil, tasksvc.ErrInvalidArgument
	}
	if perPage > tasksvc.MaxPerPage {
		perPage = tasksvc.MaxPerPage
	}

	// no store holds enough rows to reach an offset past math.MaxInt
	if page-1 > math.MaxInt/perPage {
		return []tasksvc.Task{}, nil
	}

	return s.tasks.FindAll(ctx, userID, (page-1)*perPage, perPage)
}

func (s basicService) Task(ctx context.Context, userID, taskID uint64) (tasksvc.Task, error) {
	if userID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if taskID == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return s.tasks.Find(ctx, userID, taskID)
}

func (s basicService) UpdateTask(ctx context.Context, userID, taskID uint64, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	if userID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if taskID == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return tasksvc.Task{}, err
		}
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}

	return s.tasks.Update(ctx, userID, taskID, patch)
}

func (s basicService) DeleteTask(ctx context.Context, userID, taskID uint64) error {
	if userID == 0 {
		return tasksvc.ErrInvalidArgument
	}
	if taskID == 0 {
		return tasksvc.ErrTaskNotFound
	}
	return s.tasks.Delete(ctx, userID, taskID)
}

func validateTitle(title string) error {
	var errs validation.Errors
	if validation.Blank(title) {
		errs.Add("title", "can't be blank")
	}
	return errs.Err()
}
