package mood

import "github.com/desertthunder/moodsplit/internal/models"

// DefaultBatchSize is the number of tracks sent to the classifier per request.
const DefaultBatchSize = 20

// Batch is a contiguous slice of the playlist. Number is 1-based and Offset is
// the index of the first track in the original list.
type Batch struct {
	Number int
	Offset int
	Tracks []models.Track
}

// Songs renders "name - artist" for each track in the batch.
func (b Batch) Songs() []string {
	songs := make([]string, len(b.Tracks))
	for i, t := range b.Tracks {
		songs[i] = t.Display()
	}
	return songs
}

// PlanBatches splits tracks into ceil(len/size) batches without reordering.
// A non-positive size is treated as 1.
func PlanBatches(tracks []models.Track, size int) []Batch {
	if size < 1 {
		size = 1
	}

	batches := make([]Batch, 0, (len(tracks)+size-1)/size)
	for start := 0; start < len(tracks); start += size {
		end := min(start+size, len(tracks))
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			Offset: start,
			Tracks: tracks[start:end:end],
		})
	}
	return batches
}
