package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// TaskID identifies the task for one post at one target time, so the same
// schedule request never lands twice.
func TaskID(postID int64, at time.Time) string {
	return fmt.Sprintf("publish:%d:%d", postID, at.Unix())
}

func NewPublishPostTask(postID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

func parsePayload(data []byte) (PublishPostPayload, error) {
	var payload PublishPostPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("decode publish payload: %w", err)
	}
	return payload, nil
}
