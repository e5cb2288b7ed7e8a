package service

import (
	"fmt"
	"time"
)

func expiresAt(now time.Time, expiresIn int64) time.Time {
	return now.Add(time.Duration(expiresIn) * time.Second)
}

func checkPublishRequest(req PublishRequest) error {
	if req.Post == nil {
		return fmt.Errorf("%w: publish request without post", ErrMalformedMedia)
	}
	if req.AccessToken == "" || req.AccountID == "" {
		return ErrMissingCredential
	}
	return nil
}
