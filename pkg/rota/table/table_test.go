package table_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rota-sched/rota/pkg/rota"
	"github.com/rota-sched/rota/pkg/rota/input"
	"github.com/rota-sched/rota/pkg/rota/rotatest"
	"github.com/rota-sched/rota/pkg/rota/table"
)

func TestTable(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Table Suite")
}

func capacity(n int) *int {
	return &n
}

func attendees(names ...string) []input.Attendee {
	result := make([]input.Attendee, len(names))
	for i, name := range names {
		result[i] = input.Attendee{Name: name}
	}
	return result
}

func solve(t *table.AssignmentTable, backend rota.Backend) (rota.Result, []table.Assignment) {
	result, err := backend.Check(context.Background())
	Expect(err).ToNot(HaveOccurred())
	m, ok := result.Model()
	if !ok {
		return result, nil
	}
	assignments, err := t.Decode(m)
	Expect(err).ToNot(HaveOccurred())
	return result, assignments
}

var _ = Describe("AssignmentTable", func() {
	var backend *rotatest.Backend

	BeforeEach(func() {
		backend = rotatest.New()
	})

	Describe("construction", func() {
		It("should declare one variable per attendee and timeslot in row order", func() {
			t, err := table.New(attendees("Alice", "Bob", "Carol"), []input.Timeslot{{Name: "Room A"}, {Name: "Room B"}}, backend)
			Expect(err).ToNot(HaveOccurred())

			rows, columns := t.Len()
			Expect(rows * columns).To(Equal(6))
			Expect(backend.Variables()).To(Equal([]rota.Identifier{
				table.VariableID("Alice", "Room A"), table.VariableID("Alice", "Room B"),
				table.VariableID("Bob", "Room A"), table.VariableID("Bob", "Room B"),
				table.VariableID("Carol", "Room A"), table.VariableID("Carol", "Room B"),
			}))
			Expect(backend.Constraints()).To(BeEmpty())
		})

		It("should resolve names through explicit row and column maps", func() {
			t, err := table.New(attendees("Alice", "Bob"), []input.Timeslot{{Name: "Room A"}, {Name: "Room B"}}, backend)
			Expect(err).ToNot(HaveOccurred())

			row, ok := t.Row("Bob")
			Expect(ok).To(BeTrue())
			Expect(row).To(Equal(1))
			column, ok := t.Column("Room A")
			Expect(ok).To(BeTrue())
			Expect(column).To(Equal(0))
			v, ok := t.Variable("Bob", "Room B")
			Expect(ok).To(BeTrue())
			Expect(v.Identifier()).To(Equal(table.VariableID("Bob", "Room B")))
			_, ok = t.Variable("Dave", "Room B")
			Expect(ok).To(BeFalse())
		})

		It("should never build the same identifier for different pairs", func() {
			Expect(table.VariableID("a@b", "c")).ToNot(Equal(table.VariableID("a", "b@c")))
			Expect(table.VariableID("a", "b")).To(Equal(rota.Identifier(`"a"@"b"`)))
		})

		It("should fail with a setup error when the backend rejects a declaration", func() {
			backend.DeclareErr = errors.New("out of variables")
			_, err := table.New(attendees("Alice"), []input.Timeslot{{Name: "Room A"}}, backend)
			Expect(err).To(MatchError(rota.ErrSolverSetup))
			Expect(err).To(MatchError(ContainSubstring("out of variables")))
		})

		It("should fail with a setup error for duplicate attendees", func() {
			_, err := table.New(attendees("Alice", "Alice"), []input.Timeslot{{Name: "Room A"}}, backend)
			Expect(err).To(MatchError(rota.ErrSolverSetup))
			var dup rota.DuplicateIdentifier
			Expect(errors.As(err, &dup)).To(BeTrue())
		})

		It("should fail without a backend", func() {
			_, err := table.New(attendees("Alice"), nil, nil)
			Expect(err).To(MatchError(rota.ErrSolverSetup))
		})

		It("should build from a parsed document", func() {
			t, err := table.FromDocument(&input.Document{Attendees: attendees("Alice"), Timeslots: []input.Timeslot{{Name: "Room A"}}}, backend)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Attendees()).To(HaveLen(1))
			Expect(t.Timeslots()).To(HaveLen(1))
		})
	})

	Describe("AssignmentsFor", func() {
		var t *table.AssignmentTable

		BeforeEach(func() {
			var err error
			t, err = table.New(attendees("Alice", "Bob"), []input.Timeslot{{Name: "Room C"}, {Name: "Room A"}, {Name: "Room B"}}, backend)
			Expect(err).ToNot(HaveOccurred())
		})

		collect := func(attendee string) ([]int, []rota.Identifier) {
			var indexes []int
			var ids []rota.Identifier
			for j, v := range t.AssignmentsFor(attendee) {
				indexes = append(indexes, j)
				ids = append(ids, v.Identifier())
			}
			return indexes, ids
		}

		It("should yield one entry per timeslot in load order", func() {
			indexes, ids := collect("Bob")
			Expect(indexes).To(Equal([]int{0, 1, 2}))
			Expect(ids).To(Equal([]rota.Identifier{
				table.VariableID("Bob", "Room C"),
				table.VariableID("Bob", "Room A"),
				table.VariableID("Bob", "Room B"),
			}))
		})

		It("should be restartable", func() {
			first, _ := collect("Alice")
			second, _ := collect("Alice")
			Expect(second).To(Equal(first))
		})

		It("should stop when the consumer stops", func() {
			seen := 0
			for range t.AssignmentsFor("Alice") {
				seen++
				break
			}
			Expect(seen).To(Equal(1))
		})

		It("should yield nothing for an unknown attendee", func() {
			indexes, _ := collect("Mallory")
			Expect(indexes).To(BeEmpty())
		})

		It("should never call the backend", func() {
			collect("Alice")
			Expect(backend.Constraints()).To(BeEmpty())
		})
	})

	Describe("constraint generators", func() {
		It("should add one exact-visit constraint per attendee", func() {
			t, err := table.New(attendees("Alice", "Bob"), []input.Timeslot{{Name: "Room A"}, {Name: "Room B"}}, backend)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.EqVisits(1)).To(Succeed())

			Expect(backend.Constraints()).To(HaveLen(2))
			c := backend.Constraints()[0]
			lo, hi := c.Bounds()
			Expect([]int{lo, hi}).To(Equal([]int{1, 1}))
			Expect(c.Variables()).To(HaveLen(2))
			Expect(c.String()).To(Equal("Alice must visit exactly 1 timeslot(s)"))
		})

		It("should reject negative visits before touching the backend", func() {
			t, err := table.New(attendees("Alice"), []input.Timeslot{{Name: "Room A"}}, backend)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.EqVisits(-1)).To(MatchError(rota.ErrSolverSetup))
			Expect(backend.Constraints()).To(BeEmpty())
		})

		It("should bound only timeslots that have a capacity", func() {
			t, err := table.New(attendees("Alice", "Bob", "Carol"), []input.Timeslot{
				{Name: "Room A", Capacity: capacity(1)},
				{Name: "Hall"},
				{Name: "Room B", Capacity: capacity(0)},
			}, backend)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.MaxAttendees()).To(Succeed())

			Expect(backend.Constraints()).To(HaveLen(2))
			first, second := backend.Constraints()[0], backend.Constraints()[1]
			Expect(first.String()).To(Equal("Room A holds at most 1 attendee(s)"))
			Expect(first.Variables()).To(HaveLen(3))
			_, hi := second.Bounds()
			Expect(hi).To(BeZero())
		})
	})

	Describe("solving", func() {
		build := func(names []string, timeslots []input.Timeslot, visits int) *table.AssignmentTable {
			t, err := table.New(attendees(names...), timeslots, backend)
			Expect(err).ToNot(HaveOccurred())
			Expect(t.EqVisits(visits)).To(Succeed())
			Expect(t.MaxAttendees()).To(Succeed())
			return t
		}

		It("should assign Alice and Bob to different rooms", func() {
			t := build([]string{"Alice", "Bob"}, []input.Timeslot{
				{Name: "Room A", Capacity: capacity(1)},
				{Name: "Room B", Capacity: capacity(1)},
			}, 1)

			result, assignments := solve(t, backend)
			Expect(result.Outcome()).To(Equal(rota.Satisfiable))
			Expect(assignments).To(HaveLen(2))
			Expect(assignments[0].Timeslot).ToNot(BeNil())
			Expect(assignments[1].Timeslot).ToNot(BeNil())
			Expect([]string{assignments[0].Timeslot.Name, assignments[1].Timeslot.Name}).To(Or(
				Equal([]string{"Room A", "Room B"}),
				Equal([]string{"Room B", "Room A"}),
			))
			Expect(t.Verify(assignments, 1)).To(Succeed())
		})

		It("should refute more attendees than seats", func() {
			t := build([]string{"Alice", "Bob", "Carol"}, []input.Timeslot{{Name: "Room A", Capacity: capacity(1)}}, 1)
			result, _ := solve(t, backend)
			Expect(result.Outcome()).To(Equal(rota.Unsatisfiable))
		})

		It("should refute more visits than timeslots", func() {
			t := build([]string{"Alice"}, []input.Timeslot{{Name: "Room A"}, {Name: "Room B"}}, 3)
			result, _ := solve(t, backend)
			Expect(result.Outcome()).To(Equal(rota.Unsatisfiable))
		})

		It("should leave everybody unassigned for zero visits", func() {
			t := build([]string{"Alice", "Bob"}, []input.Timeslot{{Name: "Room A", Capacity: capacity(0)}, {Name: "Room B"}}, 0)
			result, assignments := solve(t, backend)
			Expect(result.Outcome()).To(Equal(rota.Satisfiable))
			for _, assignment := range assignments {
				Expect(assignment.Assigned()).To(BeFalse())
				Expect(assignment.Visits).To(BeEmpty())
			}
		})

		It("should report only the first of several visited timeslots", func() {
			t := build([]string{"Alice"}, []input.Timeslot{
				{Name: "Room A", Capacity: capacity(5)},
				{Name: "Room B", Capacity: capacity(5)},
			}, 2)

			result, assignments := solve(t, backend)
			Expect(result.Outcome()).To(Equal(rota.Satisfiable))
			Expect(assignments).To(HaveLen(1))
			Expect(assignments[0].Timeslot.Name).To(Equal("Room A"))
			Expect(assignments[0].Visits).To(HaveLen(2))
			Expect(assignments[0].Visits[1].Name).To(Equal("Room B"))
		})

		It("should refuse to decode a model from another backend", func() {
			t := build([]string{"Alice"}, []input.Timeslot{{Name: "Room A"}}, 1)
			other := rotatest.New()
			_, err := other.DeclareBool("x")
			Expect(err).ToNot(HaveOccurred())
			result, err := other.Check(context.Background())
			Expect(err).ToNot(HaveOccurred())
			m, ok := result.Model()
			Expect(ok).To(BeTrue())

			_, err = t.Decode(m)
			Expect(err).To(MatchError(rota.ErrPrematureEvaluation))
		})
	})

	Describe("Verify", func() {
		It("should list every broken rule", func() {
			roomA := input.Timeslot{Name: "Room A", Capacity: capacity(1)}
			t, err := table.New(attendees("Alice", "Bob"), []input.Timeslot{roomA, {Name: "Hall"}}, backend)
			Expect(err).ToNot(HaveOccurred())

			err = t.Verify([]table.Assignment{
				{Attendee: input.Attendee{Name: "Alice"}, Timeslot: &roomA, Visits: []input.Timeslot{roomA}},
				{Attendee: input.Attendee{Name: "Bob"}, Timeslot: &roomA, Visits: []input.Timeslot{roomA, {Name: "Hall"}}},
			}, 1)

			var violations table.VerificationError
			Expect(errors.As(err, &violations)).To(BeTrue())
			Expect(violations).To(ConsistOf(
				"Bob visits 2 timeslot(s), expected 1",
				"Room A holds 2 attendee(s), capacity is 1",
			))
		})

		It("should only check the capacity of bounded timeslots", func() {
			hall := input.Timeslot{Name: "Hall"}
			roomA := input.Timeslot{Name: "Room A", Capacity: capacity(2)}
			t, err := table.New(attendees("Alice", "Bob", "Carol"), []input.Timeslot{hall, roomA}, backend)
			Expect(err).ToNot(HaveOccurred())

			Expect(t.Verify([]table.Assignment{
				{Attendee: input.Attendee{Name: "Alice"}, Timeslot: &hall, Visits: []input.Timeslot{hall}},
				{Attendee: input.Attendee{Name: "Bob"}, Timeslot: &hall, Visits: []input.Timeslot{hall}},
				{Attendee: input.Attendee{Name: "Carol"}, Timeslot: &roomA, Visits: []input.Timeslot{roomA}},
			}, 1)).To(Succeed())
		})
	})
})
