package board

// PlanningPhaseID is the phase the chat assistant fills in.
const PlanningPhaseID = "1"

// DefaultPhases returns the hackathon planning board: planning, preparation
// and execution phases. Only planning starts expanded.
func DefaultPhases() []Phase {
	return []Phase{
		{
			ID:     PlanningPhaseID,
			Title:  "Phase 1: Planning",
			IsOpen: true,
			Tasks: []Task{
				pending("1-1", "Timeline"),
				pending("1-2", "Theme"),
				pending("1-3", "Location"),
				pending("1-4", "Size"),
				pending("1-5", "Branding"),
			},
		},
		{
			ID:    "2",
			Title: "Phase 2: Preparation",
			Tasks: []Task{
				pending("2-1", "Make website"),
				pending("2-2", "Make marketing posts and images"),
				pending("2-3", "Make sponsorship package"),
				pending("2-4", "Make Devpost"),
			},
		},
		{
			ID:    "3",
			Title: "Phase 3: Execution",
			Tasks: []Task{
				pending("3-1", "Make Discord channels"),
				pending("3-2", "Automatically send sponsors the emails"),
				pending("3-3", "Email people to mentor + volunteer"),
			},
		},
	}
}

func pending(id, name string) Task {
	return Task{ID: id, Name: name, Status: StatusPending}
}
