package convo

// Router picks the next step from the just-updated state. Routers are pure:
// no side effects, exactly one answer. They run only when a handler
// completed without pausing.
type Router func(st *State) Step

func defaultRoutes() map[Step]Router {
	return map[Step]Router{
		StepGreeting: func(st *State) Step {
			if st.Profile != nil {
				return StepCollectDescription
			}
			return StepRegisterUser
		},

		StepRegisterUser: func(st *State) Step {
			if st.Profile != nil {
				return StepCollectDescription
			}
			return StepRegisterUser
		},

		StepCollectDescription: func(*State) Step {
			return StepClassify
		},

		StepClassify: func(st *State) Step {
			if len(st.Candidates) > 0 {
				return StepConfirmClassification
			}
			return StepCollectDescription
		},

		StepConfirmClassification: func(st *State) Step {
			if st.SelectedCode != "" {
				return StepCollectFields
			}
			return StepCollectDescription
		},

		StepCollectFields: func(st *State) Step {
			if len(st.MissingFields) > 0 {
				return StepCollectFields
			}
			return StepConfirmation
		},

		StepConfirmation: func(*State) Step {
			return StepProcessConfirmation
		},

		StepProcessConfirmation: func(st *State) Step {
			switch st.Decision {
			case DecisionSave:
				return StepSave
			case DecisionEdit:
				return StepEdit
			default:
				return StepEnd
			}
		},

		StepEdit: func(st *State) Step {
			if len(st.MissingFields) > 0 {
				return StepCollectFields
			}
			return StepEdit
		},

		StepSave: func(*State) Step {
			return StepEnd
		},
	}
}
