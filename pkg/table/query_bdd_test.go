package table_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/table"
	"github.com/luxfi/orq/pkg/vector"
)

func bddCluster() ([3]party.ID, [3]*protocol.Replicated3[uint32]) {
	ids := [3]party.ID{"alice", "bob", "carol"}
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{4, 2})
	Expect(err).NotTo(HaveOccurred())
	return ids, engines
}

func bddRunOnAll[Out any](engines [3]*protocol.Replicated3[uint32], body func(*protocol.Replicated3[uint32]) Out) [3]Out {
	var out [3]Out
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			defer wg.Done()
			out[i] = body(engines[i])
		}()
	}
	wg.Wait()
	return out
}

func bddShare(ids [3]party.ID, engines [3]*protocol.Replicated3[uint32], v vector.Vec[uint32]) [3]share.Share[uint32] {
	return bddRunOnAll(engines, func(r *protocol.Replicated3[uint32]) share.Share[uint32] {
		in := v
		if r.Self() != ids[0] {
			in = vector.NewFilled[uint32](v.Size(), 0)
		}
		s, err := r.SecretShareA(in, ids[0])
		Expect(err).NotTo(HaveOccurred())
		return s
	})
}

func bddIndexOf(ids [3]party.ID, self party.ID) int {
	for i, id := range ids {
		if id == self {
			return i
		}
	}
	return -1
}

// A multi-stage pay-equity style query: per-employee rows carry a
// department, a validity flag (terminated employees are excluded),
// and a salary; the query filters out terminated employees, sums
// salary per department, and joins the per-department totals against
// a department budget table, the way a wage-gap analysis would chain
// filter -> group-by -> join across a secret-shared HR extract.
var _ = Describe("Multi-stage relational query", func() {
	var (
		ids     [3]party.ID
		engines [3]*protocol.Replicated3[uint32]
	)

	BeforeEach(func() {
		ids, engines = bddCluster()
	})

	It("filters terminated employees, sums salary per department, and joins department budgets", func() {
		depts := vector.New([]uint32{1, 2, 1, 2, 1, 2})
		salaries := vector.New([]uint32{100, 200, 50, 75, 25, 125})
		active := vector.New([]uint32{1, 1, 1, 0, 1, 1})

		deptShares := bddShare(ids, engines, depts)
		salaryShares := bddShare(ids, engines, salaries)
		activeShares := bddShare(ids, engines, active)

		deptIDs := vector.New([]uint32{1, 2})
		budgets := vector.New([]uint32{1000, 2000})
		budgetDeptShares := bddShare(ids, engines, deptIDs)
		budgetAmountShares := bddShare(ids, engines, budgets)

		results := bddRunOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
			idx := bddIndexOf(ids, r.Self())

			employees, err := table.NewWithValid(r, []table.Column[uint32]{
				{Name: "dept", Data: deptShares[idx]},
				{Name: "salary", Data: salaryShares[idx]},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(employees.Filter(r, activeShares[idx])).To(Succeed())
			Expect(employees.PadPowerOfTwo()).To(Succeed())
			sortMgr := perm.NewManager(5)
			sortMgr.Reserve(employees.Rows(), 1, perm.HonestMajority)
			Expect(employees.Sort(r, sortMgr, "dept")).To(Succeed())
			Expect(employees.Aggregate(r, "dept", []aggregate.AggregationSelector{
				aggregate.SumOf("salary"),
			})).To(Succeed())
			Expect(employees.Compact(r, perm.NewManager(11))).To(Succeed())

			budget, err := table.NewWithValid(r, []table.Column[uint32]{
				{Name: "dept", Data: budgetDeptShares[idx]},
				{Name: "cap", Data: budgetAmountShares[idx]},
			})
			Expect(err).NotTo(HaveOccurred())

			joinMgr := perm.NewManager(17)
			joined, err := table.InnerJoin(r, joinMgr, employees, budget, "dept", "dept")
			Expect(err).NotTo(HaveOccurred())
			Expect(joined.Compact(r, perm.NewManager(13))).To(Succeed())

			col, err := joined.Column("right.cap")
			Expect(err).NotTo(HaveOccurred())
			v, err := r.Open(col.Data)
			Expect(err).NotTo(HaveOccurred())
			return v.ToSlice()
		})

		for _, v := range results {
			Expect(v).To(ConsistOf(uint32(1000), uint32(2000)))
		}
	})
})
