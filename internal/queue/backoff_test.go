package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{Base: 5 * time.Second, Factor: 2}

	assert.Equal(t, 5*time.Second, p.Delay(0))
	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(2))
}

func TestRetryPolicyDelayFunc(t *testing.T) {
	fn := RetryPolicy{Base: 5 * time.Second, Factor: 2}.RetryDelayFunc()
	task := asynq.NewTask(TaskTypePublishPost, nil)

	assert.Equal(t, 5*time.Second, fn(0, errors.New("x"), task))
	assert.Equal(t, 10*time.Second, fn(1, errors.New("x"), task))
}

func TestRetryPolicyFactorBelowOne(t *testing.T) {
	p := RetryPolicy{Base: time.Second, Factor: 0}

	assert.Equal(t, time.Second, p.Delay(3))
}
