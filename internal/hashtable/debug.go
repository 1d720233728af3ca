package hashtable

import "github.com/davecgh/go-spew/spew"

// debugBuckets renders each non-empty bucket's index and the codes of
// its chain, in chain order, as a spew dump. Payloads are not included.
func debugBuckets[T any](buckets []*Node[T]) string {
	type bucketSummary struct {
		Index int
		Chain []uint64
	}
	var summaries []bucketSummary
	for i, head := range buckets {
		if head == nil {
			continue
		}
		s := bucketSummary{Index: i}
		for n := head; n != nil; n = n.next {
			s.Chain = append(s.Chain, n.code)
		}
		summaries = append(summaries, s)
	}
	return spew.Sdump(summaries)
}
