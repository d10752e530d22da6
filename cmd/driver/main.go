package main

import (
	"fmt"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"tiny_stm/pkg/stm"
)

var (
	producers   int
	deposits    int
	parkTimeout time.Duration
)

func init() {
	flag.IntVar(&producers, "producers", 4,
		`Number of goroutines depositing into the shared account`)
	flag.IntVar(&deposits, "deposits", 1000,
		`Deposits made by each producer`)
	flag.DurationVar(&parkTimeout, "park-timeout", time.Second,
		`Upper bound on one blocked-retry sleep`)
}

func main() {
	flag.Parse()
	stm.DefaultParkTimeout = parkTimeout

	// Scenario 1: concurrent increments serialize.
	counter := stm.NewVar(0)
	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < deposits; j++ {
				_ = stm.Atomically(func(tx *stm.Tx) error {
					tx.Set(counter, tx.Get(counter).(int)+1)
					return nil
				})
			}
		}()
	}
	wg.Wait()
	fmt.Println(stm.AtomicGet(counter) == producers*deposits)
	fmt.Println(stm.AtomicGet(counter))

	// Scenario 2: a consumer blocks on an empty account and is woken by
	// producer commits instead of spinning.
	account := stm.NewVar(0)
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < deposits; j++ {
				_ = stm.Atomically(func(tx *stm.Tx) error {
					tx.Set(account, tx.Get(account).(int)+1)
					return nil
				})
			}
		}()
	}

	total := producers * deposits
	collected := 0
	for collected < total {
		withdrawn := 0
		err := stm.Atomically(func(tx *stm.Tx) error {
			balance := tx.Get(account).(int)
			if balance == 0 {
				tx.Retry()
			}
			tx.Set(account, 0)
			withdrawn = balance
			return nil
		})
		if err != nil {
			panic(err)
		}
		collected += withdrawn
	}
	wg.Wait()
	fmt.Println(collected == total)
	fmt.Println(collected)

	// Scenario 3: OrElse routes a withdrawal to whichever account can
	// cover it first.
	checking := stm.NewVar(0)
	savings := stm.NewVar(100)

	takeFrom := func(v *stm.Var, amount int) func(*stm.Tx) error {
		return func(tx *stm.Tx) error {
			balance := tx.Get(v).(int)
			if balance < amount {
				tx.Retry()
			}
			tx.Set(v, balance-amount)
			return nil
		}
	}

	if err := stm.Atomically(stm.OrElse(takeFrom(checking, 25), takeFrom(savings, 25))); err != nil {
		panic(err)
	}
	fmt.Println(stm.AtomicGet(checking))
	fmt.Println(stm.AtomicGet(savings))
}
