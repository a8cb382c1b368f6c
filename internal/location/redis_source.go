package location

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeviceChannel is the pub/sub channel a device's secondary provider publishes to.
func DeviceChannel(deviceID string) string {
	return "locations:device:" + deviceID
}

// subscribeTimeout bounds the subscribe round-trip in StartUpdates.
const subscribeTimeout = 5 * time.Second

// RedisSource receives JSON encoded Updates from a redis pub/sub channel.
type RedisSource struct {
	rdb     *redis.Client
	channel string
	name    string
	updates chan Update
	done    chan struct{}

	mu         sync.Mutex
	pubsub     *redis.PubSub
	stop       chan struct{}
	permission PermissionStatus
	wg         sync.WaitGroup
	closed     bool
}

func NewRedisSource(rdb *redis.Client, deviceID string) *RedisSource {
	return &RedisSource{
		rdb:        rdb,
		channel:    DeviceChannel(deviceID),
		name:       "redis",
		updates:    make(chan Update, 64),
		done:       make(chan struct{}),
		permission: PermissionNotDetermined,
	}
}

func (s *RedisSource) StartUpdates(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pubsub != nil {
		return nil
	}

	subCtx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	defer cancel()
	pubsub := s.rdb.Subscribe(subCtx, s.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		_ = pubsub.Close()
		return err
	}
	s.pubsub = pubsub
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.receive(pubsub.Channel(), s.stop)
	return nil
}

// receive forwards messages until the subscription is stopped. A full
// updates buffer never outlives StopUpdates: the pending message is dropped.
func (s *RedisSource) receive(ch <-chan *redis.Message, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		var msg *redis.Message
		select {
		case <-stop:
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}

		var u Update
		if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
			log.Printf("redis location payload on %s: %v", s.channel, err)
			continue
		}
		if u.Sample == nil && u.Permission == nil {
			continue
		}
		u.Provider = s.name
		if u.Permission != nil {
			s.mu.Lock()
			s.permission = *u.Permission
			s.mu.Unlock()
		}
		select {
		case s.updates <- u:
		case <-stop:
			return
		case <-s.done:
			return
		}
	}
}

func (s *RedisSource) StopUpdates() error {
	s.mu.Lock()
	pubsub, stop := s.pubsub, s.stop
	s.pubsub, s.stop = nil, nil
	s.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	close(stop)
	err := pubsub.Close()
	s.wg.Wait()
	return err
}

func (s *RedisSource) Permission() PermissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

func (s *RedisSource) Updates() <-chan Update {
	return s.updates
}

func (s *RedisSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	err := s.StopUpdates()
	close(s.updates)
	return err
}
