package main

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/juju/errors"
)

func ErrUnknownCmd(cmd string) error {
	return errors.Errorf("ERR unknown command '%s'", cmd)
}

func ErrInvalidNArg(cmd string) error {
	return errors.Errorf("ERR wrong number of arguments for '%s' command", cmd)
}

const (
	ErrNotInt           = errors.ConstError("ERR value is not an integer or out of range")
	ErrSyntax           = errors.ConstError("ERR syntax error")
	ErrUnbalancedQuotes = errors.ConstError("ERR unbalanced quotes")
	ErrEmptyCommand     = errors.ConstError("ERR empty command")
)

type CommandType = byte

const (
	// Server commands
	CmdVersion CommandType = iota
	CmdPing
	CmdKeys
	CmdAuth
	CmdHello
	CmdClient
	CmdInfo
	CmdDbSize
	CmdFlushAll
	CmdCleanup
	CmdExpire
	CmdTTL
	CmdType
	// KV
	CmdSet
	CmdGet
	CmdDel
	// Priority Queues
	CmdQueueAdd
	CmdQueuePop
	CmdQueuePeek
	CmdQueueLen
	// Lists
	CmdLPush
	CmdLPop
	CmdRPush
	CmdRPop
	CmdLLen
	CmdLRange
	CmdLIndex
	CmdLInsert
	CmdLRem
	// Sets
	CmdSetAdd
	CmdSetMembers
	CmdSetRem
	CmdSetIsMember
	CmdSetInter
	CmdSetCard
)

type AuthOptions struct {
	User     string
	Password string
}

type Command struct {
	Kind CommandType
	Name string   // lower case command name
	Args []string // the request as received, for the write ahead log

	Key    string
	Keys   []string
	Value  string
	Values []string

	Pattern     string        // keys
	Message     string        // ping
	ExpireIn    time.Duration // set ex/px
	Seconds     int           // expire
	Priority    int           // qadd
	Start       int           // lrange
	Stop        int           // lrange
	Index       int           // lindex
	Count       int           // lrem
	Before      bool          // linsert
	Auth        AuthOptions   // auth, hello
	RespVersion int           // hello
	Limit       int           // cleanup
}

// Mutates reports whether the command changes the keyspace and so
// belongs in the write ahead log.
func (c *Command) Mutates() bool {
	switch c.Kind {
	case CmdSet, CmdDel, CmdExpire, CmdFlushAll,
		CmdQueueAdd, CmdQueuePop,
		CmdLPush, CmdRPush, CmdLPop, CmdRPop, CmdLInsert, CmdLRem,
		CmdSetAdd, CmdSetRem:
		return true
	}
	return false
}

// ParseCommand parses an inline command, e.g. `set name "bill smith"`.
func ParseCommand(message string) (*Command, error) {
	split, err := sanitize(message)
	if err != nil {
		return nil, err
	}
	return ParseArgs(split)
}

// ParseArgs parses a command already split into arguments, as it arrives
// in a RESP array.
func ParseArgs(split []string) (*Command, error) {
	argc := len(split)
	if argc == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := strings.ToLower(split[0])
	parsed, err := parseArgs(cmd, split, argc)
	if err != nil {
		return nil, err
	}
	parsed.Name = cmd
	parsed.Args = split
	return parsed, nil
}

func parseArgs(cmd string, split []string, argc int) (*Command, error) {
	switch cmd {
	case "version":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdVersion}, nil
	case "ping":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		ping := &Command{Kind: CmdPing}
		if argc == 2 {
			ping.Message = split[1]
		}
		return ping, nil
	case "keys":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}

		keys := &Command{Kind: CmdKeys, Pattern: "*"}
		if argc == 2 {
			keys.Pattern = split[1]
		}
		return keys, nil
	case "info":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdInfo}, nil
	case "client":
		if argc < 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdClient, Values: split[1:]}, nil
	case "dbsize":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdDbSize}, nil
	case "flushall":
		// FLUSHALL [ASYNC|SYNC] is accepted, flushing is always synchronous.
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdFlushAll}, nil
	case "cleanup":
		if argc > 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		cleanup := &Command{Kind: CmdCleanup}
		if argc == 2 {
			limit, err := atoi(split[1])
			if err != nil {
				return nil, err
			}

			cleanup.Limit = limit
		}

		return cleanup, nil
	case "expire":
		if argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		seconds, err := atoi(split[2])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: CmdExpire, Key: split[1], Seconds: seconds}, nil
	case "ttl":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdTTL, Key: split[1]}, nil
	case "type":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdType, Key: split[1]}, nil
	case "auth":
		switch argc {
		case 2:
			return &Command{Kind: CmdAuth, Auth: AuthOptions{User: DefaultUser, Password: split[1]}}, nil
		case 3:
			return &Command{Kind: CmdAuth, Auth: AuthOptions{User: split[1], Password: split[2]}}, nil
		}
		return nil, ErrInvalidNArg(cmd)
	case "hello":
		hello := &Command{Kind: CmdHello, RespVersion: 2}
		if argc == 1 {
			return hello, nil
		}
		version, err := atoi(split[1])
		if err != nil {
			return nil, errors.New("NOPROTO protocol version is not an integer or out of range")
		}
		hello.RespVersion = version

		for i := 2; i < argc; i++ {
			switch strings.ToLower(split[i]) {
			case "auth":
				if i+2 >= argc {
					return nil, ErrSyntax
				}
				hello.Auth.User = split[i+1]
				hello.Auth.Password = split[i+2]
				i += 2
			case "setname":
				if i+1 >= argc {
					return nil, ErrSyntax
				}
				i++
			default:
				return nil, ErrSyntax
			}
		}
		return hello, nil
	case "set":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		set := &Command{Kind: CmdSet, Key: split[1], Value: split[2]}
		if argc == 3 {
			return set, nil
		}
		// Expiration option
		if argc != 5 {
			return nil, ErrSyntax
		}
		n, err := atoi(split[4])
		if err != nil {
			return nil, err
		}
		var unit time.Duration
		switch strings.ToLower(split[3]) {
		case "ex":
			unit = time.Second
		case "px":
			unit = time.Millisecond
		default:
			return nil, ErrSyntax
		}
		if n <= 0 || int64(n) > math.MaxInt64/int64(unit) {
			return nil, errors.New("ERR invalid expire time in 'set' command")
		}
		set.ExpireIn = time.Duration(n) * unit
		return set, nil
	case "get":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdGet, Key: split[1]}, nil
	case "del":
		if argc < 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdDel, Keys: split[1:]}, nil
	case "qadd":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		qadd := &Command{Kind: CmdQueueAdd, Key: split[1], Priority: 1}

		for i := 2; i < argc; i++ {
			if i+1 < argc && strings.ToLower(split[i]) == "pr" {
				priority, err := atoi(split[i+1])
				if err != nil {
					return nil, err
				}

				qadd.Priority = priority
				i++
				continue
			}
			qadd.Values = append(qadd.Values, split[i])
		}
		if len(qadd.Values) == 0 {
			return nil, ErrInvalidNArg(cmd)
		}
		return qadd, nil
	case "qpop":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdQueuePop, Key: split[1]}, nil
	case "qpeek":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdQueuePeek, Key: split[1]}, nil
	case "qlen":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdQueueLen, Key: split[1]}, nil
	case "lpush":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdLPush, Key: split[1], Values: split[2:]}, nil
	case "lpop":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdLPop, Key: split[1]}, nil
	case "rpush":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdRPush, Key: split[1], Values: split[2:]}, nil
	case "rpop":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdRPop, Key: split[1]}, nil
	case "llen":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdLLen, Key: split[1]}, nil
	case "lrange":
		if argc != 4 {
			return nil, ErrInvalidNArg(cmd)
		}
		start, err := atoi(split[2])
		if err != nil {
			return nil, err
		}
		stop, err := atoi(split[3])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: CmdLRange, Key: split[1], Start: start, Stop: stop}, nil
	case "lindex":
		if argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		index, err := atoi(split[2])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: CmdLIndex, Key: split[1], Index: index}, nil
	case "linsert":
		if argc != 5 {
			return nil, ErrInvalidNArg(cmd)
		}
		linsert := &Command{Kind: CmdLInsert, Key: split[1], Values: []string{split[3]}, Value: split[4]}
		switch strings.ToLower(split[2]) {
		case "before":
			linsert.Before = true
		case "after":
		default:
			return nil, ErrSyntax
		}
		return linsert, nil
	case "lrem":
		if argc != 4 {
			return nil, ErrInvalidNArg(cmd)
		}
		count, err := atoi(split[2])
		if err != nil {
			return nil, err
		}
		return &Command{Kind: CmdLRem, Key: split[1], Count: count, Value: split[3]}, nil
	case "sadd":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetAdd, Key: split[1], Values: split[2:]}, nil
	case "smembers":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetMembers, Key: split[1]}, nil
	case "srem":
		if argc < 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetRem, Key: split[1], Values: split[2:]}, nil
	case "sismember":
		if argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetIsMember, Key: split[1], Value: split[2]}, nil
	case "scard":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetCard, Key: split[1]}, nil
	case "sinter":
		if argc < 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdSetInter, Keys: split[1:]}, nil
	}

	return nil, ErrUnknownCmd(cmd)
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotInt
	}
	return n, nil
}

func isWhitespace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// sanitize splits an inline command on whitespace. Single or double
// quotes group words into one argument.
func sanitize(message string) ([]string, error) {
	out := []string{}
	i := 0

	for i < len(message) {
		c := message[i]
		if isWhitespace(c) {
			i++
			continue
		}

		if c == '"' || c == '\'' {
			end := strings.IndexByte(message[i+1:], c)
			if end < 0 {
				return nil, ErrUnbalancedQuotes
			}

			out = append(out, message[i+1:i+1+end])
			i += end + 2
			continue
		}

		start := i
		for i < len(message) && !isWhitespace(message[i]) {
			i++
		}
		out = append(out, message[start:i])
	}

	return out, nil
}
