package tasks

import (
	"fmt"

	"github.com/desertthunder/freshlist/internal/models"
)

// ProgressUpdate represents a progress event during a pass.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pass phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase is a state of the pass state machine.
type Phase int

const (
	Idle Phase = iota
	Preparing
	Fetching
	Reconciling
	Sorting
	Syncing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Fetching:
		return "fetching"
	case Reconciling:
		return "reconciling"
	case Sorting:
		return "sorting"
	case Syncing:
		return "syncing"
	default:
		return ""
	}
}

func preparingUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: Preparing, Step: 1, Total: 1, Message: message}
}

func fetchStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetching,
		Total:   total,
		Message: fmt.Sprintf("Fetching new releases for %d artists...", total),
	}
}

func fetchArtistUpdate(step, total int, result ArtistResult) ProgressUpdate {
	if result.Err != nil {
		return ProgressUpdate{
			Phase:   Fetching,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, result.Artist.Name, result.Err),
			Data:    result,
		}
	}
	return ProgressUpdate{
		Phase:   Fetching,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks)", step, total, result.Artist.Name, len(result.Tracks)),
		Data:    result,
	}
}

func evictedUpdate(expired, orphaned int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciling,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Evicted %d expired and %d orphaned tracks", expired, orphaned),
	}
}

func mergedUpdate(added, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciling,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Added %d new tracks (%d duplicates skipped)", added, skipped),
	}
}

func sortedUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Sorting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sorted %d tracks", n),
	}
}

func syncChunkUpdate(step, total, sent int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Syncing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Wrote %d tracks to playlist", step, total, sent),
	}
}

func doneUpdate(result *PassResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Idle,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist updated: %d tracks", result.Synced),
		Data:    result,
	}
}

func playlistCreatedUpdate(state *models.State, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Preparing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", name, state.PlaylistID),
	}
}
