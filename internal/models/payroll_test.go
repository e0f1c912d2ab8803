package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayrollRunLifecycle(t *testing.T) {
	assert.True(t, RunDraft.CanTransitionTo(RunApproved))
	assert.True(t, RunApproved.CanTransitionTo(RunPaid))
	assert.True(t, RunDraft.CanTransitionTo(RunReversed))
	assert.True(t, RunApproved.CanTransitionTo(RunReversed))
	assert.True(t, RunPaid.CanTransitionTo(RunReversed))

	assert.False(t, RunDraft.CanTransitionTo(RunPaid))
	assert.False(t, RunApproved.CanTransitionTo(RunApproved))
	assert.False(t, RunPaid.CanTransitionTo(RunApproved))
	assert.False(t, RunReversed.CanTransitionTo(RunReversed))
	assert.False(t, RunReversed.CanTransitionTo(RunDraft))
}

func TestPayrollRunMutable(t *testing.T) {
	assert.True(t, RunDraft.Mutable())
	assert.False(t, RunApproved.Mutable())
	assert.False(t, RunPaid.Mutable())
	assert.False(t, RunReversed.Mutable())
}

func TestLessonPayee(t *testing.T) {
	substitute := "t2"
	done := Lesson{TeacherID: "t1", Status: LessonDone}
	assert.Equal(t, "t1", done.PayeeTeacherID())

	replaced := Lesson{TeacherID: "t1", Status: LessonReplaced, ReplacedByTeacher: &substitute}
	assert.Equal(t, "t2", replaced.PayeeTeacherID())

	canceled := Lesson{TeacherID: "t1", Status: LessonCanceled}
	assert.Equal(t, "", canceled.PayeeTeacherID())
}
