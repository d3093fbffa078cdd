package resolution

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/cortex/internal/core/common"
	"github.com/agenthands/cortex/internal/core/model"
)

// profileEmailKeys are the app-specific profile properties that can carry
// an email address for the same real-world person.
var profileEmailKeys = []string{
	"profile_email", "slack_email", "asana_email", "notion_email",
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// sameScope rejects pairs across user boundaries. Unscoped nodes
// (user_id 0) may pair with anything.
func sameScope(a, b model.Entity) bool {
	return a.UserID == 0 || b.UserID == 0 || a.UserID == b.UserID
}

// Strategy 1: exact email match Person<->Contact and Person<->User.
func (s *Service) runEmailExact(ctx context.Context) (int, error) {
	persons, err := s.fetchEntities(ctx, model.NodePerson, 0)
	if err != nil {
		return 0, err
	}
	contacts, err := s.fetchEntities(ctx, model.NodeContact, 0)
	if err != nil {
		return 0, err
	}
	users, err := s.fetchEntities(ctx, model.NodeUser, 0)
	if err != nil {
		return 0, err
	}

	byEmail := make(map[string][]model.Entity)
	for _, e := range append(contacts, users...) {
		if e.Email == "" {
			continue
		}
		key := strings.ToLower(e.Email)
		byEmail[key] = append(byEmail[key], e)
	}

	created := 0
	seen := make(map[string]bool)
	for _, p := range persons {
		if p.Email == "" {
			continue
		}
		for _, other := range byEmail[strings.ToLower(p.Email)] {
			if other.UUID == p.UUID || !sameScope(p, other) {
				continue
			}
			key := pairKey(p.UUID, other.UUID)
			if seen[key] {
				continue
			}
			seen[key] = true
			if s.createSameAs(ctx, p.UUID, other.UUID, 1.0, "email_exact") {
				created++
			}
		}
	}
	return created, nil
}

// Strategy 2: app-specific profile email matched against an email-based
// node (chat-platform, task-tool, workspace-doc-tool profiles).
func (s *Service) runProfileEmail(ctx context.Context) (int, error) {
	persons, err := s.fetchEntities(ctx, model.NodePerson, 0)
	if err != nil {
		return 0, err
	}
	contacts, err := s.fetchEntities(ctx, model.NodeContact, 0)
	if err != nil {
		return 0, err
	}

	byEmail := make(map[string][]model.Entity)
	for _, e := range append(append([]model.Entity{}, persons...), contacts...) {
		if e.Email == "" {
			continue
		}
		key := strings.ToLower(e.Email)
		byEmail[key] = append(byEmail[key], e)
	}

	created := 0
	seen := make(map[string]bool)
	for _, p := range persons {
		for _, attrKey := range profileEmailKeys {
			raw, ok := p.Attributes[attrKey]
			if !ok {
				continue
			}
			profileEmail, ok := raw.(string)
			if !ok || profileEmail == "" {
				continue
			}

			for _, other := range byEmail[strings.ToLower(profileEmail)] {
				if other.UUID == p.UUID || !sameScope(p, other) {
					continue
				}
				key := pairKey(p.UUID, other.UUID)
				if seen[key] {
					continue
				}
				seen[key] = true
				if s.createSameAs(ctx, p.UUID, other.UUID, 0.95, "profile_email") {
					created++
				}
			}
		}
	}
	return created, nil
}

// Strategy 3: fuzzy name match Person<->Contact. Ratio >= 0.90 links at
// confidence 0.80, the 0.80-0.90 band links at 0.65, below that no link.
func (s *Service) runFuzzyName(ctx context.Context) (int, error) {
	persons, err := s.fetchEntities(ctx, model.NodePerson, 0)
	if err != nil {
		return 0, err
	}
	contacts, err := s.fetchEntities(ctx, model.NodeContact, 0)
	if err != nil {
		return 0, err
	}

	created := 0
	seen := make(map[string]bool)
	for _, p := range persons {
		if p.Name == "" {
			continue
		}
		for _, c := range contacts {
			if c.Name == "" || c.UUID == p.UUID || !sameScope(p, c) {
				continue
			}
			key := pairKey(p.UUID, c.UUID)
			if seen[key] {
				continue
			}

			ratio := common.SimilarityRatio(p.Name, c.Name)
			var confidence float64
			switch {
			case ratio >= s.Config.FuzzyHighThreshold:
				confidence = 0.80
			case ratio >= s.Config.FuzzyLowThreshold:
				confidence = 0.65
			default:
				continue
			}

			seen[key] = true
			if s.createSameAs(ctx, p.UUID, c.UUID, confidence, "fuzzy_name") {
				created++
			}
		}
	}
	return created, nil
}

// Strategy 4: canonical-name/nickname pairs, subject to the last-name
// rule: either side has no last name, or the last names are equal.
func (s *Service) runNickname(ctx context.Context) (int, error) {
	persons, err := s.fetchEntities(ctx, model.NodePerson, 0)
	if err != nil {
		return 0, err
	}
	contacts, err := s.fetchEntities(ctx, model.NodeContact, 0)
	if err != nil {
		return 0, err
	}

	created := 0
	seen := make(map[string]bool)
	for _, p := range persons {
		pFirst, pLast := common.SplitName(p.Name)
		if pFirst == "" {
			continue
		}
		for _, c := range contacts {
			if c.UUID == p.UUID || !sameScope(p, c) {
				continue
			}
			cFirst, cLast := common.SplitName(c.Name)
			if !firstNamesMatch(pFirst, cFirst) {
				continue
			}
			if pLast != "" && cLast != "" && pLast != cLast {
				continue
			}

			key := pairKey(p.UUID, c.UUID)
			if seen[key] {
				continue
			}
			seen[key] = true
			if s.createSameAs(ctx, p.UUID, c.UUID, 0.75, "nickname_match") {
				created++
			}
		}
	}
	return created, nil
}

// Strategy 5: action item <-> calendar event by title similarity.
func (s *Service) runTaskEvent(ctx context.Context) (int, error) {
	tasks, err := s.fetchContent(ctx, model.NodeActionItem)
	if err != nil {
		return 0, err
	}
	events, err := s.fetchContent(ctx, model.NodeCalendarEvent)
	if err != nil {
		return 0, err
	}

	created := 0
	seen := make(map[string]bool)
	for _, task := range tasks {
		if task.Title == "" {
			continue
		}
		for _, event := range events {
			if event.Title == "" || event.UserID != task.UserID {
				continue
			}

			similarity := common.SimilarityRatio(task.Title, event.Title)
			if similarity < s.Config.TaskEventThreshold {
				continue
			}

			key := pairKey(task.UUID, event.UUID)
			if seen[key] {
				continue
			}
			seen[key] = true

			context_ := fmt.Sprintf("task '%s' matches event '%s'", task.Title, event.Title)
			if s.createRelatedTo(ctx, task.UUID, event.UUID, similarity, "task_event_title", context_, true, event.Source) {
				created++
			}
		}
	}
	return created, nil
}

// Strategy 6: chat message <-> email linking. Candidates must share at
// least one participant; confidence combines shared keywords and shared
// participants, capped at 0.8; a link needs 2+ keywords or 2+
// participants in common.
func (s *Service) runMessageEmail(ctx context.Context) (int, error) {
	messages, err := s.fetchContent(ctx, model.NodeMessage)
	if err != nil {
		return 0, err
	}
	emails, err := s.fetchContent(ctx, model.NodeEmail)
	if err != nil {
		return 0, err
	}

	created := 0
	seen := make(map[string]bool)
	for _, msg := range messages {
		if len(msg.Participants) == 0 {
			continue
		}
		for _, email := range emails {
			if email.UserID != msg.UserID {
				continue
			}

			sharedParticipants := common.SharedCount(msg.Participants, email.Participants)
			if sharedParticipants < 1 {
				continue
			}
			sharedKeywords := common.SharedCount(msg.Keywords, email.Keywords)
			if sharedKeywords < 2 && sharedParticipants < 2 {
				continue
			}

			confidence := 0.4 + 0.1*float64(sharedKeywords) + 0.15*float64(sharedParticipants)
			if confidence > 0.8 {
				confidence = 0.8
			}

			key := pairKey(msg.UUID, email.UUID)
			if seen[key] {
				continue
			}
			seen[key] = true

			context_ := fmt.Sprintf("%d shared keywords, %d shared participants", sharedKeywords, sharedParticipants)
			if s.createRelatedTo(ctx, msg.UUID, email.UUID, confidence, "message_email_thread", context_, true, email.Source) {
				created++
			}
		}
	}
	return created, nil
}
