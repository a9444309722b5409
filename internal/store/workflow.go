package store

import (
	"github.com/jinga80/medical-law/internal/models"
)

// WorkflowBoard 记录每个流程最近一次推送的状态与进度。
type WorkflowBoard struct {
	items    map[models.ID]models.Workflow
	order    []models.ID
	onChange func()
}

func NewWorkflowBoard(onChange func()) *WorkflowBoard {
	if onChange == nil {
		onChange = func() {}
	}
	return &WorkflowBoard{items: make(map[models.ID]models.Workflow), onChange: onChange}
}

// Update 合并一次 workflow_status_update，进度限制在 0..100，缺失的名称沿用旧值。
func (b *WorkflowBoard) Update(w models.Workflow) bool {
	if w.Progress < 0 {
		w.Progress = 0
	} else if w.Progress > 100 {
		w.Progress = 100
	}
	prev, ok := b.items[w.ID]
	if ok {
		if w.Name == "" {
			w.Name = prev.Name
		}
		if w.StepName == "" {
			w.StepName = prev.StepName
		}
		if w == prev {
			return false
		}
	} else {
		b.order = append(b.order, w.ID)
	}
	b.items[w.ID] = w
	b.onChange()
	return true
}

func (b *WorkflowBoard) Get(id models.ID) (models.Workflow, bool) {
	w, ok := b.items[id]
	return w, ok
}

// Items 按首次出现的顺序返回。
func (b *WorkflowBoard) Items() []models.Workflow {
	out := make([]models.Workflow, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.items[id])
	}
	return out
}

func (b *WorkflowBoard) Len() int { return len(b.order) }
