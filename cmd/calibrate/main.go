// Command calibrate estimates how many samples the equilibrium monitor needs to declare a
// simulated bath settled after a setpoint step, for a range of buffer sizes.  Bath time
// constants are drawn from a log normal distribution so the estimate covers slow and fast
// baths alike.
package main

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/BTBurke/bathctl/pkg/instrument"
	"github.com/BTBurke/bathctl/pkg/metric"
	"github.com/BTBurke/bathctl/pkg/rng"
	"github.com/BTBurke/bathctl/pkg/stat"
)

const (
	Loops    int           = 2000
	MaxTicks int           = 5000
	Interval time.Duration = 5 * time.Second
	Start    float64       = 20.0
	Target   float64       = 25.0
	// log of the bath time constant in seconds, about 90s at the median
	TauMean  float64 = 4.5
	TauSigma float64 = 0.5
)

var wg sync.WaitGroup

type result struct {
	ticks   float64
	residue float64
	timeout int
}

type results struct {
	name string
	mu   sync.Mutex
	val  map[int]result
}

func (r *results) record(size int, res result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val[size] = res
}

func newResults(name string) *results {
	return &results{
		name: name,
		val:  make(map[int]result),
	}
}

func main() {
	res := newResults("settle")
	start := time.Now()
	for size := 10; size <= 60; size += 5 {
		wg.Add(1)
		log.Printf("start size=%d\n", size)
		go settle(res, size, int64(size))
	}
	wg.Wait()
	fmt.Printf("Time Elapsed: %v\n", time.Since(start))

	sizes := make([]int, 0, len(res.val))
	for size := range res.val {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	var b bytes.Buffer
	for _, size := range sizes {
		r := res.val[size]
		b.WriteString(fmt.Sprintf("%d %f %f %d\n", size, r.ticks, r.residue, r.timeout))
	}
	if err := os.WriteFile(fmt.Sprintf("%s.txt", res.name), b.Bytes(), 0644); err != nil {
		log.Fatalf("unable to write results: %v", err)
	}
}

// settle runs Loops setpoint steps with monitors of the given size and records the mean
// number of samples to equilibrium and the mean distance from the target at that point.
func settle(results *results, size int, seed int64) {
	defer wg.Done()
	taus := rng.NewLogNormalRNG(TauMean, TauSigma, seed)
	var ticks, residue float64
	timeouts := 0
	for i := 0; i < Loops; i++ {
		tau := time.Duration(taus.Rand() * float64(time.Second))
		n, probe, ok := step(size, tau, seed*int64(Loops)+int64(i)+1)
		if !ok {
			timeouts++
			continue
		}
		ticks += float64(n)
		residue += math.Abs(probe - Target)
	}
	settled := float64(Loops - timeouts)
	if settled == 0 {
		settled = math.NaN()
	}
	r := result{ticks: ticks / settled, residue: residue / settled, timeout: timeouts}
	fmt.Printf("Result: size=%d ticks=%.1f residue=%.4f timeouts=%d\n", size, r.ticks, r.residue, timeouts)
	results.record(size, r)
}

func step(size int, tau time.Duration, seed int64) (int, float64, bool) {
	limits := instrument.Limits{Min: -30, Max: 90}
	bath := instrument.NewSimBath(limits,
		instrument.WithStep(Interval),
		instrument.WithTimeConstant(tau),
		instrument.WithInitial(Start),
		instrument.WithNoise(0.002, seed),
	)
	probe := instrument.NewSimProbe(bath,
		instrument.WithStep(Interval),
		instrument.WithTimeConstant(tau/3),
		instrument.WithInitial(Start),
		instrument.WithNoise(0.001, -seed),
	)
	if err := bath.Connect(); err != nil {
		log.Fatalf("unexpected error connecting bath: %v", err)
	}
	if err := probe.Connect(); err != nil {
		log.Fatalf("unexpected error connecting probe: %v", err)
	}
	if err := bath.SetSetpoint(Target); err != nil {
		log.Fatalf("unexpected error setting setpoint: %v", err)
	}

	bm, err := stat.NewEquilibriumMonitor(metric.NewName("bath", nil), size)
	if err != nil {
		log.Fatalf("unexpected error constructing monitor: %v", err)
	}
	pm, err := stat.NewEquilibriumMonitor(metric.NewName("probe", nil), size)
	if err != nil {
		log.Fatalf("unexpected error constructing monitor: %v", err)
	}

	for j := 1; j <= MaxTicks; j++ {
		b, err := bath.ReadTemperature()
		if err != nil {
			log.Fatalf("unexpected error reading bath: %v", err)
		}
		p, err := probe.ReadTemperature()
		if err != nil {
			log.Fatalf("unexpected error reading probe: %v", err)
		}
		bm.Update(b)
		pm.Update(p)
		if bm.IsEqualized() && pm.IsEqualized() {
			return j, p, true
		}
	}
	return MaxTicks, math.NaN(), false
}
