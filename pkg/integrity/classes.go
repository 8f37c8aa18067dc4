package integrity

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/classroster/pkg/common/ids"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
)

// Classes returns a copy of the class collection in stored order.
func (m *Manager) Classes(ctx context.Context) []structs.ClassGroup {
	return slices.Clone(m.classes.Read(ctx))
}

func classIDs(classes []structs.ClassGroup) []string {
	out := make([]string, len(classes))
	for i := range classes {
		out[i] = classes[i].ID
	}
	return out
}

func hasClassName(classes []structs.ClassGroup, name string) bool {
	return slices.ContainsFunc(classes, func(c structs.ClassGroup) bool { return c.Name == name })
}

// AddClass appends a class named name. It returns false when the name is
// empty or already taken, or when the write fails.
func (m *Manager) AddClass(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	log := m.log(ctx).WithField("class", name)
	if name == "" {
		log.Warn("refusing to add class with empty name")
		return false
	}

	m.mu.Lock()
	classes := slices.Clone(m.classes.Read(ctx))
	if hasClassName(classes, name) {
		m.mu.Unlock()
		log.Warn("class name already exists")
		return false
	}
	classes = append(classes, structs.ClassGroup{ID: ids.Next(classIDs(classes)), Name: name})
	pending := m.classes.Write(ctx, classes)
	m.mu.Unlock()

	if res := <-pending; !res.Success {
		log.WithField("error", res.Error).Error("failed to add class")
		return false
	}
	log.Info("added class")
	return true
}

// EditClass renames the class with id. It returns false when id is unknown
// or another class already uses newName. Students keep their old group
// value; the rename hook, if any, runs after the write succeeds.
func (m *Manager) EditClass(ctx context.Context, id, newName string) bool {
	newName = strings.TrimSpace(newName)
	log := m.log(ctx).WithFields(logrus.Fields{"classId": id, "class": newName})
	if newName == "" {
		log.Warn("refusing to rename class to an empty name")
		return false
	}

	m.mu.Lock()
	classes := slices.Clone(m.classes.Read(ctx))
	idx := slices.IndexFunc(classes, func(c structs.ClassGroup) bool { return c.ID == id })
	if idx < 0 {
		m.mu.Unlock()
		log.Warn("class not found")
		return false
	}
	oldName := classes[idx].Name
	if oldName == newName {
		m.mu.Unlock()
		return true
	}
	if hasClassName(classes, newName) {
		m.mu.Unlock()
		log.Warn("class name already exists")
		return false
	}
	classes[idx].Name = newName
	pending := m.classes.Write(ctx, classes)
	m.mu.Unlock()

	if res := <-pending; !res.Success {
		log.WithField("error", res.Error).Error("failed to rename class")
		return false
	}

	log.WithField("previous", oldName).Info("renamed class")
	if m.onClassRenamed != nil {
		m.onClassRenamed(ctx, oldName, newName)
	}
	return true
}

// DeleteClass removes the class with id. When students still reference
// name, confirm must approve; otherwise nothing changes and false is
// returned. Referencing students keep the dangling group until cleanup.
//
// Student writes through the Manager wait until the deletion is done, so
// confirm sees every student that will be left dangling. confirm must not
// call back into the Manager.
func (m *Manager) DeleteClass(ctx context.Context, id, name string, confirm Confirmer) bool {
	log := m.log(ctx).WithFields(logrus.Fields{"classId": id, "class": name})

	m.mu.Lock()
	classes := slices.Clone(m.classes.Read(ctx))
	idx := slices.IndexFunc(classes, func(c structs.ClassGroup) bool { return c.ID == id })
	if idx < 0 {
		m.mu.Unlock()
		log.Warn("class not found")
		return false
	}

	referencing := make([]structs.Student, 0)
	for _, s := range m.students.Read(ctx) {
		if s.Group == name {
			referencing = append(referencing, s)
		}
	}
	if len(referencing) > 0 && (confirm == nil || !confirm(ctx, name, referencing)) {
		m.mu.Unlock()
		log.WithField("students", len(referencing)).Info("class deletion not confirmed")
		return false
	}

	pending := m.classes.Write(ctx, slices.Delete(classes, idx, idx+1))
	m.mu.Unlock()

	if res := <-pending; !res.Success {
		log.WithField("error", res.Error).Error("failed to delete class")
		return false
	}
	log.Info("deleted class")
	return true
}

// ValidateStudentClass reports whether a class named name exists.
func (m *Manager) ValidateStudentClass(ctx context.Context, name string) bool {
	return hasClassName(m.classes.Read(ctx), name)
}

// CleanupOrphanedStudents moves every student whose group names no existing
// class into the first class, creating the default class when there is
// none. The students are persisted in a single write. It returns how many
// students were moved, which is zero on a second consecutive run.
func (m *Manager) CleanupOrphanedStudents(ctx context.Context) int {
	log := m.log(ctx)

	m.mu.Lock()
	students := slices.Clone(m.students.Read(ctx))
	classes := m.classes.Read(ctx)

	valid := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		valid[c.Name] = struct{}{}
	}
	orphans := make([]int, 0)
	for i := range students {
		if _, ok := valid[students[i].Group]; !ok {
			orphans = append(orphans, i)
		}
	}
	if len(orphans) == 0 {
		m.mu.Unlock()
		return 0
	}

	var classWrite <-chan structs.Result[[]structs.ClassGroup]
	fallback := m.defaultClassName
	if len(classes) > 0 {
		fallback = classes[0].Name
	} else {
		created := []structs.ClassGroup{{ID: ids.Next(nil), Name: fallback}}
		classWrite = m.classes.Write(ctx, created)
		log.WithField("class", fallback).Info("created default class for orphaned students")
	}

	now := m.now()
	for _, i := range orphans {
		students[i].Group = fallback
		students[i].Stamp(now, false)
	}
	studentWrite := m.students.Write(ctx, students)
	m.invalidateStudents(ctx)
	m.mu.Unlock()

	if classWrite != nil {
		if res := <-classWrite; !res.Success {
			log.WithField("error", res.Error).Error("failed to persist default class")
		}
	}
	if res := <-studentWrite; !res.Success {
		log.WithField("error", res.Error).Error("failed to persist reassigned students")
		return 0
	}

	log.WithFields(logrus.Fields{"moved": len(orphans), "class": fallback}).Info("reassigned orphaned students")
	return len(orphans)
}

// GetClassStats returns one entry per class in stored order. The average
// completion is rounded half away from zero and is 0 for an empty class.
func (m *Manager) GetClassStats(ctx context.Context) []structs.ClassStats {
	classes := m.classes.Read(ctx)
	students := m.students.Read(ctx)

	type totals struct {
		count, active int
		completion    float64
	}
	byGroup := make(map[string]*totals, len(classes))
	for _, s := range students {
		t, ok := byGroup[s.Group]
		if !ok {
			t = &totals{}
			byGroup[s.Group] = t
		}
		t.count++
		t.completion += s.CompletionRate
		if s.IsActive() {
			t.active++
		}
	}

	stats := make([]structs.ClassStats, 0, len(classes))
	for _, c := range classes {
		entry := structs.ClassStats{ClassName: c.Name}
		if t, ok := byGroup[c.Name]; ok && t.count > 0 {
			entry.TotalStudents = t.count
			entry.ActiveStudents = t.active
			entry.AverageCompletion = int(math.Round(t.completion / float64(t.count)))
		}
		stats = append(stats, entry)
	}
	return stats
}
