package terminal

import (
	"context"
	"time"
)

// BootStep is one scripted boot message and the offset from the start of the
// sequence at which it should appear.
type BootStep struct {
	Message string        `yaml:"message" json:"message"`
	Delay   time.Duration `yaml:"delay" json:"delay"`
}

// Schedule is an ordered boot script. Delivery follows slice order.
type Schedule []BootStep

// DefaultSchedule is the StoryAI boot script.
func DefaultSchedule() Schedule {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return Schedule{
		{"BIOS Version 1.0.2-StoryAI", ms(200)},
		{"Performing system initialization...", ms(400)},
		{"CPU: Quantum Storytelling Processor v2.0", ms(800)},
		{"Memory Test: ", ms(1200)},
		{"[||||        ] 20%", ms(1400)},
		{"[||||||||    ] 40%", ms(1600)},
		{"[||||||||||||] 60%", ms(1800)},
		{"[||||||||||||||||    ] 80%", ms(2000)},
		{"[||||||||||||||||||||] 100%", ms(2200)},
		{"Memory Test Complete - 1024MB Available", ms(2400)},
		{"Initializing Hardware Components...", ms(2800)},
		{"[INFO] Detecting system devices...", ms(3000)},
		{"[OK] Primary Display Adapter", ms(3200)},
		{"[OK] Quantum Storage Controller", ms(3400)},
		{"[OK] Network Interface (WEB3)", ms(3600)},
		{"[OK] Blockchain Verification Module", ms(3800)},
		{"Loading System Kernel...", ms(4200)},
		{"Mounting filesystems...", ms(4600)},
		{"/dev/story    [OK]", ms(4800)},
		{"/dev/ai      [OK]", ms(5000)},
		{"/dev/wallet  [OK]", ms(5200)},
		{"Initializing StoryAI Services...", ms(5600)},
		{"Loading story database... [OK]", ms(6000)},
		{"Connecting to AI subsystem... [OK]", ms(6400)},
		{"Establishing secure blockchain connection... [OK]", ms(6800)},
		{"Running final diagnostics...", ms(7200)},
		{"[✓] Memory integrity", ms(7400)},
		{"[✓] Storage subsystems", ms(7600)},
		{"[✓] Network connectivity", ms(7800)},
		{"[✓] Security protocols", ms(8000)},
		{"System initialization complete.", ms(8400)},
		{"StoryAI Terminal v1.0.0 Ready", ms(8600)},
		{`Type "help" for available commands.`, ms(8800)},
	}
}

// Ordered reports whether delays strictly increase.
func (s Schedule) Ordered() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Delay <= s[i-1].Delay {
			return false
		}
	}
	return true
}

// Duration is the offset of the last delivery.
func (s Schedule) Duration() time.Duration {
	var d time.Duration
	for _, step := range s {
		if step.Delay > d {
			d = step.Delay
		}
	}
	return d
}

// Sequencer replays a Schedule as one ordered task chain. Each step is
// delivered no earlier than its delay and never before the step declared
// ahead of it, so a misordered schedule still comes out in slice order.
type Sequencer struct {
	schedule Schedule
	now      func() time.Time
}

// NewSequencer returns a sequencer over a copy of schedule.
func NewSequencer(schedule Schedule) *Sequencer {
	return &Sequencer{
		schedule: append(Schedule(nil), schedule...),
		now:      time.Now,
	}
}

// Run blocks until every step has been delivered or ctx is cancelled.
// deliver is called once per step, in order; last is true for the final one.
func (q *Sequencer) Run(ctx context.Context, deliver func(step BootStep, last bool)) error {
	start := q.now()
	for i, step := range q.schedule {
		if wait := step.Delay - q.now().Sub(start); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		deliver(step, i == len(q.schedule)-1)
	}
	return nil
}
