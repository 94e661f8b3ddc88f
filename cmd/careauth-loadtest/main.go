// Command careauth-loadtest drives concurrent logins against an engine and
// reports how the email and id copies of each account drifted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/careauth"
	"github.com/MrEthical07/careauth/internal/stores"
	"github.com/MrEthical07/careauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const seedPassword = "Load!Test9x"

func main() {
	var (
		accounts    = flag.Int("accounts", 50, "number of accounts to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase (login + failed login)")
		lockout     = flag.Int("lockout", 0, "failed attempts before lockout; 0 disables it")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "account key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := careauth.DefaultConfig()
	cfg.Store.KeyPrefix = *prefix
	cfg.Lockout.Threshold = *lockout
	cfg.Audit.Enabled = false

	engine, err := careauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	emails := make([]string, *accounts)
	ids := make([]string, *accounts)
	fmt.Printf("registering %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("load-%d@example.com", i)
		res, err := engine.Register(ctx, careauth.RegisterRequest{
			FirstName: "Load",
			LastName:  "Test",
			Email:     emails[i],
			Password:  seedPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = res.User.ID
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(*ops, *concurrency, len(emails), 7919, func(idx int) error {
		_, err := engine.Login(ctx, careauth.LoginRequest{Email: emails[idx], Password: seedPassword})
		return err
	})

	perAccount := make([]int64, len(emails))
	failedStats := runPhase(*ops, *concurrency, len(emails), 6151, func(idx int) error {
		atomic.AddInt64(&perAccount[idx], 1)
		_, err := engine.Login(ctx, careauth.LoginRequest{Email: emails[idx], Password: seedPassword + "x"})
		if errors.Is(err, careauth.ErrInvalidCredentials) || errors.Is(err, careauth.ErrAccountLocked) {
			return nil
		}
		if err == nil {
			return errors.New("wrong password accepted")
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("failed-login", failedStats)

	report, err := checkDivergence(ctx, stores.NewAccountStore(client, *prefix), emails, ids, perAccount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "divergence check failed: %v\n", err)
		os.Exit(1)
	}
	report.print()
}

// runPhase runs ops calls of op spread over concurrency workers, each call on
// a random account index.
func runPhase(ops, concurrency, accounts int, seed int64, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(accounts))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

type divergenceReport struct {
	accounts     int
	diverged     int
	missingByID  int
	lostAttempts int64
}

// checkDivergence compares the two stored copies of every account. Failed
// attempts are read-modify-write, so concurrent failures on one account can
// overwrite each other; lostAttempts counts the difference.
func checkDivergence(ctx context.Context, store *stores.AccountStore, emails, ids []string, attempted []int64) (divergenceReport, error) {
	report := divergenceReport{accounts: len(emails)}
	for i, email := range emails {
		byEmail, err := store.GetByEmail(ctx, email)
		if err != nil {
			return report, fmt.Errorf("%s: %w", email, err)
		}
		byID, err := store.GetByID(ctx, ids[i])
		if errors.Is(err, stores.ErrAccountNotFound) {
			report.missingByID++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("%s: %w", ids[i], err)
		}
		if !sameRecord(byEmail, byID) {
			report.diverged++
		}
		if lost := attempted[i] - int64(byEmail.LoginAttempts); lost > 0 {
			report.lostAttempts += lost
		}
	}
	return report, nil
}

func sameRecord(a, b *stores.AccountRecord) bool {
	return a.ID == b.ID &&
		a.Email == b.Email &&
		a.LoginAttempts == b.LoginAttempts &&
		equalTime(a.LockedUntil, b.LockedUntil) &&
		equalTime(a.LastLogin, b.LastLogin) &&
		samePassword(a.PasswordHash, b.PasswordHash)
}

func samePassword(a, b password.Stored) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if da, ok := a.Derived(); ok {
		db, _ := b.Derived()
		return da == db
	}
	la, _ := a.LegacyDigest()
	lb, _ := b.LegacyDigest()
	return la == lb
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r divergenceReport) print() {
	fmt.Printf("accounts=%d diverged=%d missing-by-id=%d lost-attempts=%d\n",
		r.accounts, r.diverged, r.missingByID, r.lostAttempts)
}
