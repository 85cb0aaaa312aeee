package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetTodaysWorkout = mcp.NewTool("get_todays_workout",
	mcp.WithDescription("Get the workout of the day. The catalog cycles deterministically by calendar day, so the result is stable for a given date."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id, including its ordered exercise list with reps and notes."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id (e.g. wod-001)")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List all workouts in the catalog with name, difficulty, estimated duration, and tags."),
)

var toolGetCompletionHistory = mcp.NewTool("get_completion_history",
	mcp.WithDescription("Get completed workouts in completion order, including NFT mint status and mint address where minted."),
	mcp.WithString("workout_id", mcp.Description("Filter by workout id")),
)

// --- Tool handlers ---

func (h *handlers) getTodaysWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.cat.TodaysWorkout(time.Now()))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	workout, ok := h.cat.ByID(id)
	if !ok {
		return mcp.NewToolResultError("unknown workout: " + id), nil
	}

	result, err := mcp.NewToolResultJSON(workout)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.cat.All())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCompletionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := h.store.All()

	if workoutID := req.GetString("workout_id", ""); workoutID != "" {
		filtered := records[:0:0]
		for _, rec := range records {
			if rec.WorkoutID == workoutID {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	result, err := mcp.NewToolResultJSON(records)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resource handlers ---

func (h *handlers) todaysWorkoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(h.cat.TodaysWorkout(time.Now()))
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      resTodaysWorkout.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
