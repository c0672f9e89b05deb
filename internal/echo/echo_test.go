package echo

import (
	"sync"
	"testing"
)

func TestArmThenTestAndClear(t *testing.T) {
	g := New()
	if g.TestAndClear() {
		t.Fatal("fresh guard reported armed")
	}
	g.Arm()
	if !g.TestAndClear() {
		t.Fatal("armed guard reported clear")
	}
	if g.TestAndClear() {
		t.Fatal("second TestAndClear should return false")
	}
}

func TestArmIsIdempotent(t *testing.T) {
	g := New()
	g.Arm()
	g.Arm()
	if !g.TestAndClear() {
		t.Fatal("expected armed")
	}
	if g.TestAndClear() {
		t.Fatal("double Arm must still be consumed once")
	}
}

func TestGuardsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Arm()
	if b.TestAndClear() {
		t.Fatal("arming one guard leaked into another")
	}
	if !a.TestAndClear() {
		t.Fatal("expected a armed")
	}
}

func TestConcurrentConsumeExactlyOnce(t *testing.T) {
	g := New()
	g.Arm()

	const workers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		hits int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TestAndClear() {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if hits != 1 {
		t.Fatalf("armed guard consumed %d times, want 1", hits)
	}
}
