package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// User-facing messages for claim races.
const (
	MsgAlreadyClaimed = "this task was already claimed by someone else"
	MsgNoLongerOpen   = "task no longer available"
)

// CreateTaskInput describes a new task.
type CreateTaskInput struct {
	HouseholdID primitive.ObjectID
	CreatorID   primitive.ObjectID
	Title       string
	Description string
	// Status is draft or published; empty means draft.
	Status     models.TaskStatus
	DueDate    time.Time
	Gems       int
	Recurrence *models.RecurrenceConfig
	// Checklist is markdown; "- [ ] item" lines become checklist items.
	Checklist string
}

// CreateTask stores a new task. Creating it as published pays the
// creation award to the creator.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, apperr.Validation("title is required")
	}
	status := in.Status
	if status == "" {
		status = models.TaskDraft
	}
	if status != models.TaskDraft && status != models.TaskPublished {
		return models.Task{}, apperr.Validation("a new task must be draft or published")
	}
	if in.Gems < 0 {
		return models.Task{}, apperr.Validation("gems cannot be negative")
	}
	if err := validateRecurrence(in.Recurrence); err != nil {
		return models.Task{}, err
	}

	h, err := s.GetHousehold(ctx, in.HouseholdID, in.CreatorID)
	if err != nil {
		return models.Task{}, err
	}
	gems, err := s.resolveGems(ctx, h, in.Description, in.Gems)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	t := models.Task{
		HouseholdID:    in.HouseholdID,
		CreatorID:      in.CreatorID,
		Title:          title,
		Description:    in.Description,
		Status:         status,
		DueDate:        in.DueDate,
		Gems:           gems,
		Recurrence:     in.Recurrence,
		Verifications:  []models.Verification{},
		ChecklistItems: ParseMarkdownChecklist(in.Checklist),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var created models.Task
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.tasks.Create(ctx, t)
		if err != nil {
			return err
		}
		if status != models.TaskPublished {
			return nil
		}
		return s.award(ctx, in.CreatorID, CreationAward(gems), models.GemTaskCreation,
			"Created task: "+title, &created.ID)
	})
	if err != nil {
		return models.Task{}, err
	}
	s.log.Info("task created",
		zap.String("task_id", created.ID.Hex()),
		zap.String("household_id", in.HouseholdID.Hex()),
		zap.String("user_id", in.CreatorID.Hex()),
		zap.String("status", string(status)))
	return created, nil
}

// resolveGems picks the gem value for a task. With a household rubric the
// estimator decides, unless overrides are allowed and the caller supplied
// a positive value.
func (s *Service) resolveGems(ctx context.Context, h models.Household, description string, requested int) (int, error) {
	if strings.TrimSpace(h.GemPrompt) == "" || s.estimator == nil {
		return requested, nil
	}
	if h.AllowGemOverride && requested > 0 {
		return requested, nil
	}
	g, err := s.estimator.EstimateGems(ctx, description, h.GemPrompt)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindExternal {
			return 0, err
		}
		return 0, apperr.External("could not estimate gems for this task", err)
	}
	if g < MinTaskGems || g > MaxTaskGems {
		return 0, apperr.External(fmt.Sprintf("gem estimate %d out of range", g), nil)
	}
	return g, nil
}

// loadTask fetches a task and the household it belongs to, requiring that
// userID is a current member.
func (s *Service) loadTask(ctx context.Context, taskID, userID primitive.ObjectID) (models.Task, models.Household, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Household{}, notFound(err, "task not found")
	}
	h, err := s.households.GetByID(ctx, t.HouseholdID)
	if err != nil {
		return models.Task{}, models.Household{}, notFound(err, "household not found")
	}
	if !h.IsMember(userID) {
		return models.Task{}, models.Household{}, apperr.Permission("you are not a member of this household")
	}
	return t, h, nil
}

// GetTask returns a task the requester can see.
func (s *Service) GetTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	return t, err
}

// ListTasks lists the household's tasks, optionally filtered by status.
func (s *Service) ListTasks(ctx context.Context, householdID, requesterID primitive.ObjectID, status models.TaskStatus) ([]models.Task, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown task status")
	}
	if _, err := s.GetHousehold(ctx, householdID, requesterID); err != nil {
		return nil, err
	}
	return s.tasks.ListByHousehold(ctx, householdID, status)
}

// reload re-reads a task after a mutation.
func (s *Service) reload(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return models.Task{}, notFound(err, "task not found")
	}
	return t, nil
}

// PublishTask moves a draft to published. Both the creation award and the
// publish bonus are paid to the creator, and they are paid again if the
// task is unpublished and republished.
//
// The stacking of these two awards is how the live system behaves and may
// not be intended; it is kept until product confirms either way.
func (s *Service) PublishTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.CreatorID != requesterID {
		return models.Task{}, apperr.Permission("only the creator can publish this task")
	}
	if t.Status != models.TaskDraft {
		return models.Task{}, apperr.FailedPrecondition("only draft tasks can be published")
	}

	err = s.tx.Run(ctx, func(ctx context.Context) error {
		ok, err := s.tasks.Transition(ctx, t.ID, models.TaskDraft, models.TaskPublished, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.FailedPrecondition("only draft tasks can be published")
		}
		if err := s.award(ctx, t.CreatorID, CreationAward(t.Gems), models.GemTaskCreation,
			"Created task: "+t.Title, &t.ID); err != nil {
			return err
		}
		if bonus := PublishBonus(t.Gems); bonus > 0 {
			return s.award(ctx, t.CreatorID, bonus, models.GemBonus, "Published task: "+t.Title, &t.ID)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	s.log.Info("task published", zap.String("task_id", t.ID.Hex()), zap.String("user_id", requesterID.Hex()))
	return s.reload(ctx, t.ID)
}

// UnpublishTask returns a published task to draft.
func (s *Service) UnpublishTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.CreatorID != requesterID {
		return models.Task{}, apperr.Permission("only the creator can unpublish this task")
	}
	ok, err := s.tasks.Transition(ctx, t.ID, models.TaskPublished, models.TaskDraft, nil)
	if err != nil {
		return models.Task{}, err
	}
	if !ok {
		return models.Task{}, apperr.FailedPrecondition("only published tasks can be unpublished")
	}
	return s.reload(ctx, t.ID)
}

// ClaimTask gives the task to requesterID. Exactly one of several
// concurrent claimers wins; the others get a conflict.
func (s *Service) ClaimTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.HasDeclined(requesterID) {
		return models.Task{}, apperr.FailedPrecondition("you declined this task")
	}
	if t.Status != models.TaskPublished {
		if t.Status.HasClaimant() {
			return models.Task{}, apperr.Conflict(MsgAlreadyClaimed)
		}
		return models.Task{}, apperr.Conflict(MsgNoLongerOpen)
	}

	claimant := requesterID
	ok, err := s.tasks.Transition(ctx, t.ID, models.TaskPublished, models.TaskClaimed, &claimant)
	if err != nil {
		return models.Task{}, err
	}
	if !ok {
		return models.Task{}, apperr.Conflict(MsgAlreadyClaimed)
	}
	s.log.Info("task claimed", zap.String("task_id", t.ID.Hex()), zap.String("user_id", requesterID.Hex()))

	s.scheduleReminders(ctx, t, requesterID)
	if t.CreatorID != requesterID {
		s.notifyUser(ctx, t.CreatorID, Payload{
			Title: "Task claimed",
			Body:  fmt.Sprintf("Your task %q was claimed", t.Title),
			Data:  map[string]string{"taskId": t.ID.Hex(), "type": "task_claimed"},
		}, models.PrefTaskClaimed)
	}
	return s.reload(ctx, t.ID)
}

// UnclaimTask hands a claimed task back to the board.
func (s *Service) UnclaimTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if !t.IsClaimant(requesterID) {
		return models.Task{}, apperr.Permission("only the claimant can unclaim this task")
	}
	ok, err := s.tasks.Transition(ctx, t.ID, models.TaskClaimed, models.TaskPublished, nil)
	if err != nil {
		return models.Task{}, err
	}
	if !ok {
		return models.Task{}, apperr.FailedPrecondition("only claimed tasks can be unclaimed")
	}
	s.cancelReminders(ctx, t.ID)
	return s.reload(ctx, t.ID)
}

// DeclineTask records that requesterID will not take a published task.
func (s *Service) DeclineTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.Status != models.TaskPublished {
		return models.Task{}, apperr.FailedPrecondition("only published tasks can be declined")
	}
	if err := s.tasks.AddDecline(ctx, t.ID, requesterID); err != nil {
		return models.Task{}, notFound(err, "task not found")
	}
	return s.reload(ctx, t.ID)
}

// CompleteTask marks a claimed task done and asks the other members to
// verify it. No gems are paid until verification.
func (s *Service) CompleteTask(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, h, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if !t.IsClaimant(requesterID) {
		return models.Task{}, apperr.Permission("only the claimant can complete this task")
	}
	ok, err := s.tasks.Transition(ctx, t.ID, models.TaskClaimed, models.TaskCompleted, nil)
	if err != nil {
		return models.Task{}, err
	}
	if !ok {
		return models.Task{}, apperr.FailedPrecondition("only claimed tasks can be completed")
	}
	s.log.Info("task completed", zap.String("task_id", t.ID.Hex()), zap.String("user_id", requesterID.Hex()))
	s.cancelReminders(ctx, t.ID)

	for _, m := range h.Members {
		if m == requesterID {
			continue
		}
		s.notifyUser(ctx, m, Payload{
			Title:              "Verification needed",
			Body:               fmt.Sprintf("%q is done. Can you verify it?", t.Title),
			Data:               map[string]string{"taskId": t.ID.Hex(), "type": "verification_request"},
			RequireInteraction: true,
		}, models.PrefVerificationRequests)
	}
	return s.reload(ctx, t.ID)
}

// VerifyResult reports the outcome of one verification vote.
type VerifyResult struct {
	Task      models.Task `json:"task"`
	Positive  int         `json:"positive"`
	Required  int         `json:"required"`
	Finalized bool        `json:"finalized"`
}

// VerifyTask records requesterID's vote on a completed task. Every vote
// earns the voter the verification award. When positive votes reach the
// quorum for the household's current size, the task becomes verified and
// the claimant receives the task's gems.
func (s *Service) VerifyTask(ctx context.Context, taskID, requesterID primitive.ObjectID, verified bool) (VerifyResult, error) {
	var res VerifyResult
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		res = VerifyResult{}
		t, h, err := s.loadTask(ctx, taskID, requesterID)
		if err != nil {
			return err
		}
		if t.Status != models.TaskCompleted {
			return apperr.FailedPrecondition("task is not awaiting verification")
		}
		if t.IsClaimant(requesterID) {
			return apperr.Permission("you cannot verify your own task")
		}

		votes := make([]models.Verification, 0, len(t.Verifications)+1)
		for _, v := range t.Verifications {
			if v.UserID != requesterID {
				votes = append(votes, v)
			}
		}
		votes = append(votes, models.Verification{UserID: requesterID, Verified: verified, VerifiedAt: s.now()})
		if err := s.tasks.SetVerifications(ctx, t.ID, votes); err != nil {
			return err
		}
		t.Verifications = votes

		if err := s.award(ctx, requesterID, VerificationAward, models.GemVerification,
			"Verified task: "+t.Title, &t.ID); err != nil {
			return err
		}

		res.Positive = t.PositiveVotes()
		res.Required = RequiredVerifications(len(h.Members))
		if res.Positive < res.Required {
			return nil
		}
		ok, err := s.tasks.Transition(ctx, t.ID, models.TaskCompleted, models.TaskVerified, nil)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		res.Finalized = true
		return s.award(ctx, *t.ClaimedBy, t.Gems, models.GemTaskCompletion, "Completed task: "+t.Title, &t.ID)
	})
	if err != nil {
		return VerifyResult{}, err
	}

	t, err := s.reload(ctx, taskID)
	if err != nil {
		return VerifyResult{}, err
	}
	res.Task = t
	if res.Finalized && t.ClaimedBy != nil {
		s.log.Info("task verified", zap.String("task_id", t.ID.Hex()), zap.String("user_id", t.ClaimedBy.Hex()))
		s.notifyUser(ctx, *t.ClaimedBy, Payload{
			Title: "Task verified",
			Body:  fmt.Sprintf("%q was verified. You earned %d gems!", t.Title, t.Gems),
			Data:  map[string]string{"taskId": t.ID.Hex(), "type": "task_verified"},
		}, models.PrefTaskVerified)
	}
	return res, nil
}

// DeleteTask removes a draft task. Only its creator may do this.
func (s *Service) DeleteTask(ctx context.Context, taskID, requesterID primitive.ObjectID) error {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return err
	}
	if t.CreatorID != requesterID {
		return apperr.Permission("only the creator can delete this task")
	}
	if t.Status != models.TaskDraft {
		return apperr.FailedPrecondition("only draft tasks can be deleted")
	}
	ok, err := s.tasks.DeleteDraft(ctx, t.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.FailedPrecondition("only draft tasks can be deleted")
	}
	return nil
}

// SpawnRecurrence creates the next draft occurrence of a recurring task
// that has been completed or verified.
func (s *Service) SpawnRecurrence(ctx context.Context, taskID, requesterID primitive.ObjectID) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.Status != models.TaskCompleted && t.Status != models.TaskVerified {
		return models.Task{}, apperr.FailedPrecondition("only completed or verified tasks can recur")
	}
	if t.Recurrence == nil {
		return models.Task{}, apperr.FailedPrecondition("task has no recurrence")
	}

	now := s.now()
	due := NextDueDate(t.DueDate, now, *t.Recurrence)
	if t.Recurrence.EndDate != nil && due.After(*t.Recurrence.EndDate) {
		return models.Task{}, apperr.FailedPrecondition("recurrence has ended")
	}

	rc := *t.Recurrence
	rc.DaysOfWeek = append([]time.Weekday(nil), t.Recurrence.DaysOfWeek...)
	src := t.ID
	next, err := s.tasks.Create(ctx, models.Task{
		HouseholdID:    t.HouseholdID,
		CreatorID:      requesterID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         models.TaskDraft,
		DueDate:        due,
		Gems:           t.Gems,
		Recurrence:     &rc,
		Verifications:  []models.Verification{},
		ChecklistItems: resetChecklist(t.ChecklistItems),
		SpawnedFrom:    &src,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return models.Task{}, err
	}
	s.log.Info("recurring task spawned",
		zap.String("task_id", next.ID.Hex()),
		zap.String("spawned_from", t.ID.Hex()))
	return next, nil
}

// EditTaskInput carries optional changes; nil fields are left alone.
type EditTaskInput struct {
	Title           *string
	Description     *string
	Gems            *int
	DueDate         *time.Time
	Recurrence      *models.RecurrenceConfig
	ClearRecurrence bool
	Checklist       *string
}

// EditTask changes a draft or published task. Only its creator may do this.
func (s *Service) EditTask(ctx context.Context, taskID, requesterID primitive.ObjectID, in EditTaskInput) (models.Task, error) {
	t, h, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if t.CreatorID != requesterID {
		return models.Task{}, apperr.Permission("only the creator can edit this task")
	}
	if t.Status != models.TaskDraft && t.Status != models.TaskPublished {
		return models.Task{}, apperr.FailedPrecondition("only draft or published tasks can be edited")
	}

	edit := TaskEdit{DueDate: in.DueDate, ClearRecur: in.ClearRecurrence}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Task{}, apperr.Validation("title is required")
		}
		edit.Title = &title
	}
	if in.Gems != nil && *in.Gems < 0 {
		return models.Task{}, apperr.Validation("gems cannot be negative")
	}
	if err := validateRecurrence(in.Recurrence); err != nil {
		return models.Task{}, err
	}
	edit.Recurrence = in.Recurrence
	edit.Description = in.Description
	if in.Checklist != nil {
		items := ParseMarkdownChecklist(*in.Checklist)
		if items == nil {
			items = []models.ChecklistItem{}
		}
		edit.ChecklistItems = &items
	}

	if in.Description != nil || in.Gems != nil {
		desc := t.Description
		if in.Description != nil {
			desc = *in.Description
		}
		requested := t.Gems
		if in.Gems != nil {
			requested = *in.Gems
		}
		g, err := s.resolveGems(ctx, h, desc, requested)
		if err != nil {
			return models.Task{}, err
		}
		edit.Gems = &g
	}

	if err := s.tasks.Update(ctx, t.ID, edit); err != nil {
		return models.Task{}, notFound(err, "task not found")
	}
	return s.reload(ctx, t.ID)
}

// ToggleChecklistItem flips one checklist box. The claimant and the
// creator may do this.
func (s *Service) ToggleChecklistItem(ctx context.Context, taskID, requesterID primitive.ObjectID, index int) (models.Task, error) {
	t, _, err := s.loadTask(ctx, taskID, requesterID)
	if err != nil {
		return models.Task{}, err
	}
	if !t.IsClaimant(requesterID) && t.CreatorID != requesterID {
		return models.Task{}, apperr.Permission("only the claimant or creator can update the checklist")
	}
	if index < 0 || index >= len(t.ChecklistItems) {
		return models.Task{}, apperr.Validation("checklist item out of range")
	}
	items := append([]models.ChecklistItem(nil), t.ChecklistItems...)
	items[index].Checked = !items[index].Checked
	if err := s.tasks.SetChecklist(ctx, t.ID, items); err != nil {
		return models.Task{}, notFound(err, "task not found")
	}
	return s.reload(ctx, t.ID)
}
