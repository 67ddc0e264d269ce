package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/taskapi/tasksvc"
	libgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *libgorm.DB
}

func NewTaskRepository(db *libgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t *taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	if task.ID != 0 || task.OwnerID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	result := t.db.WithContext(ctx).Create(&task)
	if result.Error != nil {
		return tasksvc.Task{}, translate(result.Error)
	}

	return task, nil
}

func (t *taskRepository) FindAll(ctx context.Context, ownerID uint64, offset, limit int) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&tasks)
	if result.Error != nil {
		return nil, translate(result.Error)
	}

	return tasks, nil
}

func (t *taskRepository) Find(ctx context.Context, ownerID, taskID uint64) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", taskID, ownerID).First(&task)
	if result.Error != nil {
		return tasksvc.Task{}, translate(result.Error)
	}

	return task, nil
}

func (t *taskRepository) Update(ctx context.Context, ownerID, taskID uint64, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	var task tasksvc.Task
	err := t.db.WithContext(ctx).Transaction(func(tx *libgorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", taskID, ownerID).First(&task).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Done != nil {
			updates["done"] = *patch.Done
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&task, task.ID).Error
	})
	if err != nil {
		return tasksvc.Task{}, translate(err)
	}

	return task, nil
}

func (t *taskRepository) Delete(ctx context.Context, ownerID, taskID uint64) error {
	result := t.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&tasksvc.Task{}, taskID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrTaskNotFound
	}

	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, libgorm.ErrRecordNotFound):
		return tasksvc.ErrTaskNotFound
	}
	return fmt.Errorf("%w: %v", tasksvc.ErrStoreUnavailable, err)
}
