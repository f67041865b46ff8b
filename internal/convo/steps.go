// Package convo implements the incident-reporting conversation: a directed
// graph of steps advanced one inbound message at a time. Each step either
// pauses waiting for the operator's next reply or completes and hands off to
// a routing function that picks the next step. The whole conversation is
// resumable because every pause is recorded in the serializable State.
package convo

// Step names a handler in the conversation graph.
type Step string

const (
	StepGreeting              Step = "greeting"
	StepRegisterUser          Step = "register_user"
	StepCollectDescription    Step = "collect_description"
	StepClassify              Step = "classify"
	StepConfirmClassification Step = "confirm_classification"
	StepCollectFields         Step = "collect_fields"
	StepConfirmation          Step = "confirmation"
	StepProcessConfirmation   Step = "process_confirmation"
	StepEdit                  Step = "edit"
	StepSave                  Step = "save"

	// StepEnd is the terminal marker. It has no handler; reaching it ends
	// the current ticket and leaves the state ready for the next one.
	StepEnd Step = "end"
)

// Await labels the kind of reply a paused conversation is waiting for.
type Await string

const (
	AwaitNone         Await = ""
	AwaitName         Await = "name"
	AwaitDescription  Await = "description"
	AwaitClassChoice  Await = "classification_choice"
	AwaitFieldValue   Await = "field_value"
	AwaitConfirmation Await = "confirmation"
	AwaitEditField    Await = "edit_field"
)

// Decision is the outcome of the confirmation menu.
type Decision string

const (
	DecisionNone   Decision = ""
	DecisionSave   Decision = "save"
	DecisionEdit   Decision = "edit"
	DecisionCancel Decision = "cancel"
)
