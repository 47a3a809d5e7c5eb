package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

func GetClient(addr, password string) (*redis.Client, error) {
	memo := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := memo.Ping(ctx).Err(); err != nil {
		memo.Close()
		return nil, errors.Annotatef(err, "could not connect to Memo server at %s, make sure it is running", addr)
	}
	return memo, nil
}

func main() {
	f := gnuflag.NewFlagSet("client", gnuflag.ExitOnError)
	addr := f.String("addr", "localhost:5678", "Memo server address")
	password := f.String("password", "password", "Password for authentication")
	f.Parse(true, os.Args[1:])

	memo, err := GetClient(*addr, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer memo.Close()

	if err := run(memo); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(memo *redis.Client) error {
	memo.Del(ctx, "demo:list", "demo:jobs", "demo:name")

	if err := memo.Set(ctx, "demo:name", "bill", 1*time.Second).Err(); err != nil {
		return errors.Trace(err)
	}
	time.Sleep(2 * time.Second)
	if err := memo.Get(ctx, "demo:name").Err(); err == redis.Nil {
		fmt.Println("demo:name expired")
	}

	if err := memo.RPush(ctx, "demo:list", "b", "c", "d").Err(); err != nil {
		return errors.Trace(err)
	}
	memo.LPush(ctx, "demo:list", "a")
	memo.LInsertAfter(ctx, "demo:list", "b", "b2")
	memo.LRem(ctx, "demo:list", 1, "d")
	items, err := memo.LRange(ctx, "demo:list", 0, -1).Result()
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Println("demo:list", items)

	memo.Do(ctx, "qadd", "demo:jobs", "report", "backup", "pr", "5")
	memo.Do(ctx, "qadd", "demo:jobs", "page-oncall", "pr", "1")
	for {
		job, err := memo.Do(ctx, "qpop", "demo:jobs").Text()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return errors.Trace(err)
		}
		fmt.Println("job", job)
	}
	return nil
}
