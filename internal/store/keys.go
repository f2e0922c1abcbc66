package store

import "fmt"

// Key layout. The ranking sorted set and the detail blobs are the durable
// state; the jobpost and greenhouse keys are bounded-TTL caches.
const (
	keyPrefixRanking   = "job"
	keyPrefixCandidate = "candidate"
	keyPrefixJobPost   = "jobpost"
	keyPrefixDetail    = "greenhouse:candidate"

	// EventsChannel carries best-effort pipeline notifications.
	EventsChannel = "hothouse:events"
)

func rankingKey(jobID int64) string {
	return fmt.Sprintf("%s:%d:candidates", keyPrefixRanking, jobID)
}

func candidateKey(jobID, candidateID int64) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefixCandidate, jobID, candidateID)
}

func jobPostKey(jobID int64) string {
	return fmt.Sprintf("%s:%d:description", keyPrefixJobPost, jobID)
}

func detailCacheKey(candidateID int64) string {
	return fmt.Sprintf("%s:%d", keyPrefixDetail, candidateID)
}
