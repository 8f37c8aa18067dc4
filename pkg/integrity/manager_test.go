package integrity

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redhat-data-and-ai/classroster/pkg/cache"
	"github.com/redhat-data-and-ai/classroster/pkg/cache/inmemory"
	"github.com/redhat-data-and-ai/classroster/pkg/common/constants"
	"github.com/redhat-data-and-ai/classroster/pkg/common/structs"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls++
}

func studentNames(students []structs.Student) []string {
	names := make([]string, 0, len(students))
	for _, s := range students {
		names = append(names, s.Name)
	}
	return names
}

var _ = Describe("Integrity Manager", func() {
	var (
		ctx         context.Context
		dataStore   *store.Store
		manager     *Manager
		invalidator *countingInvalidator
	)

	newStore := func() *store.Store {
		c, err := cache.New(&cache.Config{
			Driver: cache.DriverMemory,
			InMemory: &inmemory.Config{
				DefaultExpiration: int32(-1),
				CleanupInterval:   int32(-1),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return store.New(ctx, c, store.Options{Debounce: 5 * time.Millisecond})
	}

	seedStudents := func(students ...structs.Student) {
		for i := range students {
			if students[i].Status == "" {
				students[i].Status = structs.StudentActive
			}
			res := manager.AddStudent(ctx, students[i])
			Expect(res.Success).To(BeTrue(), res.Error)
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		dataStore = newStore()
		invalidator = &countingInvalidator{}
		manager = New(ctx, dataStore.Classes, dataStore.Students, WithCacheInvalidator(invalidator))
	})

	AfterEach(func() {
		manager.Close()
		dataStore.Close()
	})

	Context("Adding classes", func() {
		It("assigns sequential ids", func() {
			Expect(manager.AddClass(ctx, "A반")).To(BeTrue())
			Expect(manager.AddClass(ctx, "B반")).To(BeTrue())

			classes := manager.Classes(ctx)
			Expect(classes).To(Equal([]structs.ClassGroup{{ID: "1", Name: "A반"}, {ID: "2", Name: "B반"}}))
		})

		It("rejects a duplicate name without changing the collection", func() {
			Expect(manager.AddClass(ctx, "A반")).To(BeTrue())
			Expect(manager.AddClass(ctx, "A반")).To(BeFalse())
			Expect(manager.Classes(ctx)).To(HaveLen(1))
		})

		It("rejects a blank name", func() {
			Expect(manager.AddClass(ctx, "  ")).To(BeFalse())
			Expect(manager.Classes(ctx)).To(BeEmpty())
		})

		It("persists the collection", func() {
			Expect(manager.AddClass(ctx, "A반")).To(BeTrue())
			Expect(dataStore.Classes.Refresh(ctx)).To(HaveLen(1))
		})
	})

	Context("Editing classes", func() {
		BeforeEach(func() {
			Expect(manager.AddClass(ctx, "A반")).To(BeTrue())
			Expect(manager.AddClass(ctx, "B반")).To(BeTrue())
		})

		It("rejects a name used by another class", func() {
			Expect(manager.EditClass(ctx, "1", "B반")).To(BeFalse())
			Expect(manager.Classes(ctx)[0].Name).To(Equal("A반"))
		})

		It("rejects an unknown id", func() {
			Expect(manager.EditClass(ctx, "9", "C반")).To(BeFalse())
		})

		It("renames without migrating students", func() {
			seedStudents(structs.Student{Name: "김민수", Group: "A반"})

			Expect(manager.EditClass(ctx, "1", "C반")).To(BeTrue())
			Expect(manager.ValidateStudentClass(ctx, "C반")).To(BeTrue())
			Expect(manager.ValidateStudentClass(ctx, "A반")).To(BeFalse())
			Expect(manager.GetStudentsByClass(ctx, "A반")).To(HaveLen(1))
		})

		It("calls the rename hook after a successful rename", func() {
			var renamed [][2]string
			hooked := New(ctx, dataStore.Classes, dataStore.Students,
				WithOnClassRenamed(func(_ context.Context, oldName, newName string) {
					renamed = append(renamed, [2]string{oldName, newName})
				}))
			defer hooked.Close()

			Expect(hooked.EditClass(ctx, "1", "B반")).To(BeFalse())
			Expect(hooked.EditClass(ctx, "1", "C반")).To(BeTrue())
			Expect(renamed).To(Equal([][2]string{{"A반", "C반"}}))
		})
	})

	Context("Deleting classes", func() {
		BeforeEach(func() {
			Expect(manager.AddClass(ctx, "A반")).To(BeTrue())
		})

		It("deletes an empty class without asking", func() {
			asked := false
			Expect(manager.DeleteClass(ctx, "1", "A반", func(context.Context, string, []structs.Student) bool {
				asked = true
				return false
			})).To(BeTrue())
			Expect(asked).To(BeFalse())
			Expect(manager.Classes(ctx)).To(BeEmpty())
		})

		It("leaves class and students untouched when not confirmed", func() {
			seedStudents(structs.Student{Name: "김민수", Group: "A반"})

			Expect(manager.DeleteClass(ctx, "1", "A반", nil)).To(BeFalse())
			Expect(manager.DeleteClass(ctx, "1", "A반", func(_ context.Context, name string, students []structs.Student) bool {
				Expect(name).To(Equal("A반"))
				Expect(studentNames(students)).To(Equal([]string{"김민수"}))
				return false
			})).To(BeFalse())

			Expect(manager.Classes(ctx)).To(HaveLen(1))
			Expect(dataStore.Students.Read(ctx)[0].Group).To(Equal("A반"))
		})

		It("leaves students dangling after a confirmed delete", func() {
			seedStudents(structs.Student{Name: "김민수", Group: "A반"})

			Expect(manager.DeleteClass(ctx, "1", "A반", AlwaysConfirm)).To(BeTrue())
			Expect(manager.Classes(ctx)).To(BeEmpty())
			Expect(manager.ValidateStudentClass(ctx, "A반")).To(BeFalse())
			Expect(dataStore.Students.Read(ctx)[0].Group).To(Equal("A반"))
		})

		It("returns false for an unknown id", func() {
			Expect(manager.DeleteClass(ctx, "9", "Z반", AlwaysConfirm)).To(BeFalse())
		})

		It("holds student writes until the confirmed deletion is done", func() {
			seedStudents(structs.Student{Name: "김민수", Group: "A반"})

			added := make(chan structs.Result[structs.Student], 1)
			Expect(manager.DeleteClass(ctx, "1", "A반", func(_ context.Context, _ string, students []structs.Student) bool {
				go func() {
					added <- manager.AddStudent(ctx, structs.Student{Name: "이영희", Group: "A반"})
				}()
				Consistently(added).WithTimeout(50 * time.Millisecond).ShouldNot(Receive())
				Expect(studentNames(students)).To(Equal([]string{"김민수"}))
				return true
			})).To(BeTrue())

			var res structs.Result[structs.Student]
			Eventually(added).WithTimeout(time.Second).Should(Receive(&res))
			Expect(res.Success).To(BeTrue(), res.Error)
			Expect(manager.Classes(ctx)).To(BeEmpty())
		})
	})

	Context("Cleaning up orphaned students", func() {
		It("moves orphans to the first class and is idempotent", func() {
			Expect(manager.AddClass(ctx, "A")).To(BeTrue())
			Expect(manager.AddClass(ctx, "B")).To(BeTrue())
			seedStudents(
				structs.Student{Name: "kim", Group: "C"},
				structs.Student{Name: "lee", Group: "B"},
			)

			Expect(manager.ValidateStudentClass(ctx, "C")).To(BeFalse())
			Expect(manager.CleanupOrphanedStudents(ctx)).To(Equal(1))
			Expect(manager.CleanupOrphanedStudents(ctx)).To(Equal(0))

			Expect(studentNames(manager.GetStudentsByClass(ctx, "A"))).To(Equal([]string{"kim"}))
			Expect(studentNames(manager.GetStudentsByClass(ctx, "B"))).To(Equal([]string{"lee"}))
		})

		It("creates the default class when none exists", func() {
			seedStudents(structs.Student{Name: "kim", Group: "gone"})

			Expect(manager.CleanupOrphanedStudents(ctx)).To(Equal(1))
			Expect(manager.Classes(ctx)).To(Equal([]structs.ClassGroup{{ID: "1", Name: constants.DefaultClassName}}))
			Expect(manager.ValidateStudentClass(ctx, constants.DefaultClassName)).To(BeTrue())
			Expect(dataStore.Students.Refresh(ctx)[0].Group).To(Equal(constants.DefaultClassName))
		})

		It("uses the configured default class name", func() {
			named := New(ctx, dataStore.Classes, dataStore.Students, WithDefaultClassName("Unassigned"))
			defer named.Close()
			seedStudents(structs.Student{Name: "kim", Group: "gone"})

			Expect(named.CleanupOrphanedStudents(ctx)).To(Equal(1))
			Expect(named.Classes(ctx)[0].Name).To(Equal("Unassigned"))
		})

		It("does nothing without orphans", func() {
			Expect(manager.CleanupOrphanedStudents(ctx)).To(Equal(0))
			Expect(manager.Classes(ctx)).To(BeEmpty())
		})

		It("drops the student cache after moving students", func() {
			seedStudents(structs.Student{Name: "kim", Group: "gone"})
			before := invalidator.calls

			manager.CleanupOrphanedStudents(ctx)
			Expect(invalidator.calls).To(Equal(before + 1))
		})
	})

	Context("Auto cleanup", func() {
		It("repairs orphans after a class is deleted", func() {
			auto := New(ctx, dataStore.Classes, dataStore.Students, WithAutoCleanup(true))
			defer auto.Close()

			Expect(auto.AddClass(ctx, "A")).To(BeTrue())
			Expect(auto.AddClass(ctx, "B")).To(BeTrue())
			seedStudents(structs.Student{Name: "kim", Group: "B"})

			Expect(auto.DeleteClass(ctx, "2", "B", AlwaysConfirm)).To(BeTrue())

			Eventually(func() string {
				return dataStore.Students.Read(ctx)[0].Group
			}).WithTimeout(time.Second).WithPolling(10 * time.Millisecond).Should(Equal("A"))
		})

		It("stops reacting after Close", func() {
			auto := New(ctx, dataStore.Classes, dataStore.Students, WithAutoCleanup(true))
			Expect(auto.AddClass(ctx, "A")).To(BeTrue())
			seedStudents(structs.Student{Name: "kim", Group: "A"})
			auto.Close()

			Expect(manager.DeleteClass(ctx, "1", "A", AlwaysConfirm)).To(BeTrue())
			Consistently(func() string {
				return dataStore.Students.Read(ctx)[0].Group
			}).WithTimeout(100 * time.Millisecond).Should(Equal("A"))
		})
	})

	Context("Class statistics", func() {
		It("computes totals and the rounded mean", func() {
			Expect(manager.AddClass(ctx, "A")).To(BeTrue())
			Expect(manager.AddClass(ctx, "Empty")).To(BeTrue())
			seedStudents(
				structs.Student{Name: "s1", Group: "A", CompletionRate: 80},
				structs.Student{Name: "s2", Group: "A", CompletionRate: 60},
				structs.Student{Name: "s3", Group: "A", CompletionRate: 100},
				structs.Student{Name: "s4", Group: "A", CompletionRate: 0, Status: structs.StudentInactive},
				structs.Student{Name: "orphan", Group: "gone", CompletionRate: 10},
			)

			Expect(manager.GetClassStats(ctx)).To(Equal([]structs.ClassStats{
				{ClassName: "A", TotalStudents: 4, ActiveStudents: 3, AverageCompletion: 60},
				{ClassName: "Empty"},
			}))
		})

		It("rounds half up", func() {
			Expect(manager.AddClass(ctx, "A")).To(BeTrue())
			seedStudents(
				structs.Student{Name: "s1", Group: "A", CompletionRate: 50},
				structs.Student{Name: "s2", Group: "A", CompletionRate: 51},
			)
			Expect(manager.GetClassStats(ctx)[0].AverageCompletion).To(Equal(51))
		})
	})

	Context("Students by class", func() {
		It("is refreshed when the student collection changes", func() {
			Expect(manager.AddClass(ctx, "A")).To(BeTrue())
			seedStudents(structs.Student{Name: "kim", Group: "A"})
			Expect(manager.GetStudentsByClass(ctx, "A")).To(HaveLen(1))

			seedStudents(structs.Student{Name: "lee", Group: "A"})
			Expect(studentNames(manager.GetStudentsByClass(ctx, "A"))).To(Equal([]string{"kim", "lee"}))
		})

		It("matches names exactly", func() {
			seedStudents(structs.Student{Name: "kim", Group: "A반"})
			Expect(manager.GetStudentsByClass(ctx, "A")).To(BeEmpty())
		})
	})

	Context("Student operations", func() {
		It("defaults status and assigns ids", func() {
			res := manager.AddStudent(ctx, structs.Student{Name: "kim", Group: "A"})
			Expect(res.Success).To(BeTrue(), res.Error)
			Expect(res.Data.ID).To(Equal("1"))
			Expect(res.Data.Status).To(Equal(structs.StudentActive))
			Expect(invalidator.calls).To(Equal(1))
		})

		It("rejects duplicate ids and invalid records", func() {
			seedStudents(structs.Student{ID: "7", Name: "kim"})

			Expect(manager.AddStudent(ctx, structs.Student{ID: "7", Name: "lee"}).Success).To(BeFalse())
			res := manager.AddStudent(ctx, structs.Student{Name: "lee", CompletionRate: 120})
			Expect(res.Success).To(BeFalse())
			Expect(res.Error).To(ContainSubstring("validation failed"))
			Expect(dataStore.Students.Read(ctx)).To(HaveLen(1))
		})

		It("updates while keeping the creation time", func() {
			seedStudents(structs.Student{Name: "kim"})
			created := dataStore.Students.Read(ctx)[0].CreatedAt

			res := manager.UpdateStudent(ctx, structs.Student{ID: "1", Name: "kim", CompletionRate: 70})
			Expect(res.Success).To(BeTrue(), res.Error)
			Expect(res.Data.CreatedAt).To(Equal(created))
			Expect(dataStore.Students.Read(ctx)[0].CompletionRate).To(Equal(float64(70)))

			Expect(manager.UpdateStudent(ctx, structs.Student{ID: "9", Name: "x"}).Success).To(BeFalse())
		})

		It("deletes by id", func() {
			seedStudents(structs.Student{Name: "kim"})
			Expect(manager.DeleteStudent(ctx, "1").Data).To(BeTrue())
			Expect(manager.DeleteStudent(ctx, "1").Success).To(BeFalse())
			Expect(dataStore.Students.Read(ctx)).To(BeEmpty())
		})

		It("imports a batch in one write", func() {
			seedStudents(structs.Student{Name: "kim", Group: "A"})

			res := manager.ImportStudents(ctx, []structs.Student{
				{ID: "1", Name: "kim", Group: "B"},
				{Name: "lee", Group: "A"},
			})
			Expect(res.Success).To(BeTrue(), res.Error)
			Expect(res.Data).To(HaveLen(2))

			stored := dataStore.Students.Refresh(ctx)
			Expect(studentNames(stored)).To(Equal([]string{"kim", "lee"}))
			Expect(stored[0].Group).To(Equal("B"))
			Expect(stored[1].ID).To(Equal("2"))
		})

		It("rejects the whole batch when a record is invalid", func() {
			res := manager.ImportStudents(ctx, []structs.Student{
				{Name: "kim"},
				{Name: ""},
			})
			Expect(res.Success).To(BeFalse())
			Expect(res.Error).To(ContainSubstring("record 1"))
			Expect(dataStore.Students.Read(ctx)).To(BeEmpty())
		})
	})
})
