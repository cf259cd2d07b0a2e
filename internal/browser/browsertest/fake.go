// Package browsertest provides an in-memory browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/maheshrc27/crosspost/internal/browser"
)

type Driver struct {
	mu       sync.Mutex
	Sessions []*Session
	// Setup configures each new session before it is handed out.
	Setup func(*Session)
	Err   error
}

func (d *Driver) NewSession(ctx context.Context) (browser.Session, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	s := NewSession()
	if d.Setup != nil {
		d.Setup(s)
	}
	d.mu.Lock()
	d.Sessions = append(d.Sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *Driver) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Sessions)
}

// Session pretends every selector exists unless listed in Missing.
type Session struct {
	mu       sync.Mutex
	Missing  map[string]bool
	Texts    map[string]string
	Errors   map[string]error
	URL      string
	Jar      []browser.Cookie
	Actions  []string
	Typed    map[string]string
	Uploaded []string
	Closed   bool
	// AfterClick lets a test change the page (e.g. redirect) when a selector is clicked.
	AfterClick func(s *Session, selector string)
}

func NewSession() *Session {
	return &Session{
		Missing: map[string]bool{},
		Texts:   map[string]string{},
		Errors:  map[string]error{},
		Typed:   map[string]string{},
	}
}

func (s *Session) record(action string) error {
	s.Actions = append(s.Actions, action)
	return s.Errors[action]
}

func (s *Session) need(selector string) error {
	if s.Missing[selector] {
		return fmt.Errorf("element not found: %s", selector)
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("navigate " + url); err != nil {
		return err
	}
	s.URL = url
	return ctx.Err()
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("wait " + selector); err != nil {
		return err
	}
	return s.need(selector)
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("exists " + selector); err != nil {
		return false, err
	}
	return !s.Missing[selector], nil
}

func (s *Session) Type(ctx context.Context, selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("type " + selector); err != nil {
		return err
	}
	if err := s.need(selector); err != nil {
		return err
	}
	s.Typed[selector] = text
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	if err := s.record("click " + selector); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.need(selector); err != nil {
		s.mu.Unlock()
		return err
	}
	after := s.AfterClick
	s.mu.Unlock()
	if after != nil {
		after(s, selector)
	}
	return nil
}

func (s *Session) UploadFiles(ctx context.Context, selector string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("upload " + selector); err != nil {
		return err
	}
	if err := s.need(selector); err != nil {
		return err
	}
	s.Uploaded = append(s.Uploaded, paths...)
	return nil
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("text " + selector); err != nil {
		return "", err
	}
	if err := s.need(selector); err != nil {
		return "", err
	}
	return s.Texts[selector], nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.URL, nil
}

func (s *Session) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]browser.Cookie{}, s.Jar...), nil
}

func (s *Session) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jar = append(s.Jar, cookies...)
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}

// SetMissing marks a selector as present or absent.
func (s *Session) SetMissing(selector string, missing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Missing[selector] = missing
}
