package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"time"

	"gomosbridge/bridge"
	"gomosbridge/config"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	keySettings   = "mos:settings"
	keyChainTypes = "mos:chaintypes"
	keyTokens     = "mos:tokens"
	keyRegistered = "mos:registered"
	keyUsedEvents = "mos:usedevents"
	keyAmountOut  = "mos:amountout"
	keyLostFound  = "mos:lostfound"
	keyEvents     = "mos:events"
)

func dispatchKey(id string) string {
	return "mos:dispatch:" + id
}

func scannedBlockKey(chainID uint64) string {
	return fmt.Sprintf("chainBlockScanned:%d", chainID)
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle: 5,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}
}

// Store persists the bridge state, the event log and the dispatch outbox.
// Every bridge Commit is a single MULTI/EXEC.
type Store struct {
	pool   *redis.Pool
	logger *logrus.Logger
}

func NewStore(pool *redis.Pool, logger *logrus.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

func (s *Store) conn(ctx context.Context) (redis.Conn, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "redis connection")
	}
	return conn, nil
}

func lostFoundField(k bridge.LostFoundKey) string {
	b, _ := json.Marshal([]string{k.Account, k.Token})
	return string(b)
}

func parseLostFoundField(f string) (bridge.LostFoundKey, error) {
	var parts []string
	if err := json.Unmarshal([]byte(f), &parts); err != nil || len(parts) != 2 {
		return bridge.LostFoundKey{}, errors.Errorf("bad lost and found field %q", f)
	}
	return bridge.LostFoundKey{Account: parts[0], Token: parts[1]}, nil
}

func parseBig(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("%s: bad amount %q", field, s)
	}
	return v, nil
}

func (s *Store) Load(ctx context.Context) (*bridge.State, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	st := bridge.NewState()

	raw, err := redis.Bytes(conn.Do("GET", keySettings))
	switch {
	case errors.Is(err, redis.ErrNil):
	case err != nil:
		return nil, errors.Wrap(err, "get settings")
	default:
		if err := json.Unmarshal(raw, &st.Settings); err != nil {
			return nil, errors.Wrap(err, "decode settings")
		}
	}

	chainTypes, err := redis.StringMap(conn.Do("HGETALL", keyChainTypes))
	if err != nil {
		return nil, errors.Wrap(err, "get chain types")
	}
	for id, v := range chainTypes {
		chainID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "chain id %q", id)
		}
		ct, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "chain type of %d", chainID)
		}
		st.ChainTypes[chainID] = types.ChainType(ct)
	}

	tokens, err := redis.StringMap(conn.Do("HGETALL", keyTokens))
	if err != nil {
		return nil, errors.Wrap(err, "get tokens")
	}
	for id, v := range tokens {
		var rec types.TokenRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, errors.Wrapf(err, "decode token %s", id)
		}
		if rec.ToChains == nil {
			rec.ToChains = make(map[uint64]bool)
		}
		st.Tokens[id] = &rec
	}

	registered, err := redis.StringMap(conn.Do("HGETALL", keyRegistered))
	if err != nil {
		return nil, errors.Wrap(err, "get registered tokens")
	}
	for id, v := range registered {
		st.Registered[id] = v == "1"
	}

	used, err := redis.Strings(conn.Do("SMEMBERS", keyUsedEvents))
	if err != nil {
		return nil, errors.Wrap(err, "get used events")
	}
	for _, fp := range used {
		st.UsedEvents[common.HexToHash(fp)] = struct{}{}
	}

	amountOut, err := redis.StringMap(conn.Do("HGETALL", keyAmountOut))
	if err != nil {
		return nil, errors.Wrap(err, "get amount out")
	}
	for acc, v := range amountOut {
		if st.AmountOut[acc], err = parseBig("amount out "+acc, v); err != nil {
			return nil, err
		}
	}

	lostFound, err := redis.StringMap(conn.Do("HGETALL", keyLostFound))
	if err != nil {
		return nil, errors.Wrap(err, "get lost and found")
	}
	for f, v := range lostFound {
		k, err := parseLostFoundField(f)
		if err != nil {
			return nil, err
		}
		if st.LostFound[k], err = parseBig("lost and found", v); err != nil {
			return nil, err
		}
	}

	return st, nil
}

type cmd struct {
	name string
	args []interface{}
}

// commands turns the changes into redis writes. Everything is encoded up
// front so a marshalling error never leaves a half-sent transaction.
func commands(c *bridge.Changes) ([]cmd, error) {
	var cmds []cmd
	add := func(name string, args ...interface{}) {
		cmds = append(cmds, cmd{name, args})
	}

	if c.Settings != nil {
		b, err := json.Marshal(c.Settings)
		if err != nil {
			return nil, errors.Wrap(err, "encode settings")
		}
		add("SET", keySettings, b)
	}
	for id, ct := range c.ChainTypes {
		add("HSET", keyChainTypes, strconv.FormatUint(id, 10), int(ct))
	}
	for id, rec := range c.Tokens {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "encode token %s", id)
		}
		add("HSET", keyTokens, id, b)
	}
	for id, ok := range c.Registered {
		v := "0"
		if ok {
			v = "1"
		}
		add("HSET", keyRegistered, id, v)
	}
	for _, fp := range c.UsedEvents {
		add("SADD", keyUsedEvents, fp.Hex())
	}
	for acc, v := range c.AmountOut {
		if v.Sign() == 0 {
			add("HDEL", keyAmountOut, acc)
			continue
		}
		add("HSET", keyAmountOut, acc, v.String())
	}
	for k, v := range c.LostFound {
		if v.Sign() == 0 {
			add("HDEL", keyLostFound, lostFoundField(k))
			continue
		}
		add("HSET", keyLostFound, lostFoundField(k), v.String())
	}
	for _, ev := range c.Events {
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, errors.Wrapf(err, "encode event %s", ev.ID)
		}
		add("RPUSH", keyEvents, b)
	}
	for _, d := range c.Dispatches {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, errors.Wrapf(err, "encode dispatch %s", d.ID)
		}
		add("SET", dispatchKey(d.ID), b)
		add("SADD", config.RedisStatusSets[d.Status], d.ID)
	}
	return cmds, nil
}

// execMulti runs cmds as one MULTI/EXEC block. Redis does not roll back the
// rest of a block when one command fails at run time, so such a failure is
// returned and the caller must not apply the change set in memory.
func execMulti(conn redis.Conn, cmds []cmd) error {
	if err := conn.Send("MULTI"); err != nil {
		return errors.Wrap(err, "MULTI")
	}
	for _, c := range cmds {
		if err := conn.Send(c.name, c.args...); err != nil {
			_, _ = conn.Do("DISCARD")
			return errors.Wrapf(err, "queue %s", c.name)
		}
	}
	replies, err := redis.Values(conn.Do("EXEC"))
	if err != nil {
		return errors.Wrap(err, "EXEC")
	}
	for i, r := range replies {
		if rerr, ok := r.(redis.Error); ok {
			return errors.Wrapf(rerr, "%s failed inside transaction", cmds[i].name)
		}
	}
	return nil
}

func (s *Store) Commit(ctx context.Context, c *bridge.Changes) error {
	cmds, err := commands(c)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		return nil
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := execMulti(conn, cmds); err != nil {
		s.logger.WithField("error", err.Error()).Error("redis commit")
		return err
	}
	return nil
}

// Events returns up to limit stored events from offset, oldest first.
func (s *Store) Events(ctx context.Context, offset, limit int) ([]types.Envelope, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := -1
	if limit > 0 {
		stop = offset + limit - 1
	}
	raw, err := redis.ByteSlices(conn.Do("LRANGE", keyEvents, offset, stop))
	if err != nil {
		return nil, errors.Wrap(err, "LRANGE events")
	}
	out := make([]types.Envelope, 0, len(raw))
	for _, b := range raw {
		var env types.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, errors.Wrap(err, "decode event")
		}
		out = append(out, env)
	}
	return out, nil
}

func getDispatch(conn redis.Conn, id string) (*types.Dispatch, error) {
	b, err := redis.Bytes(conn.Do("GET", dispatchKey(id)))
	if errors.Is(err, redis.ErrNil) {
		return nil, errors.Errorf("dispatch %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get dispatch %s", id)
	}
	var d types.Dispatch
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrapf(err, "decode dispatch %s", id)
	}
	return &d, nil
}

func (s *Store) GetDispatch(ctx context.Context, id string) (*types.Dispatch, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return getDispatch(conn, id)
}

// PendingDispatches returns the oldest pending dispatches first.
func (s *Store) PendingDispatches(ctx context.Context, limit int) ([]*types.Dispatch, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ids, err := redis.Strings(conn.Do("SMEMBERS", config.RedisStatusSets[types.DispatchPending]))
	if err != nil {
		return nil, errors.Wrap(err, "SMEMBERS pending")
	}
	out := make([]*types.Dispatch, 0, len(ids))
	for _, id := range ids {
		d, err := getDispatch(conn, id)
		if err != nil {
			// a record can be missing, skip it
			s.logger.WithFields(logrus.Fields{"dispatch": id, "error": err.Error()}).Warn("pending dispatch unreadable")
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TsCreated != out[j].TsCreated {
			return out[i].TsCreated < out[j].TsCreated
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateDispatch stores d and moves it to the set of its new status.
func (s *Store) UpdateDispatch(ctx context.Context, d *types.Dispatch) error {
	if _, ok := config.RedisStatusSets[d.Status]; !ok {
		return errors.Errorf("unknown dispatch status %q", d.Status)
	}
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	prev, err := getDispatch(conn, d.ID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encode dispatch")
	}
	cmds := []cmd{{"SET", []interface{}{dispatchKey(d.ID), b}}}
	if prev.Status != d.Status {
		cmds = append(cmds,
			cmd{"SREM", []interface{}{config.RedisStatusSets[prev.Status], d.ID}},
			cmd{"SADD", []interface{}{config.RedisStatusSets[d.Status], d.ID}},
		)
	}
	return execMulti(conn, cmds)
}

// DispatchCounts returns the number of dispatches per status.
func (s *Store) DispatchCounts(ctx context.Context) (map[string]int, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	counts := make(map[string]int, len(config.RedisStatusSets))
	for status, key := range config.RedisStatusSets {
		n, err := redis.Int(conn.Do("SCARD", key))
		if err != nil {
			return nil, errors.Wrapf(err, "SCARD %s", key)
		}
		counts[status] = n
	}
	return counts, nil
}

// GetScannedBlock returns the last scanned block of chainID, or -1.
func (s *Store) GetScannedBlock(ctx context.Context, chainID uint64) (int64, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return -1, err
	}
	defer conn.Close()

	height, err := redis.Int64(conn.Do("GET", scannedBlockKey(chainID)))
	if err == nil {
		return height, nil
	}
	if errors.Is(err, redis.ErrNil) {
		return -1, nil
	}
	s.logger.WithField("error", err.Error()).Error("redis get scanned block")
	return -1, err
}

func (s *Store) SetScannedBlock(ctx context.Context, chainID uint64, height int64) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Do("SET", scannedBlockKey(chainID), height); err != nil {
		s.logger.WithField("error", err.Error()).Error("redis set scanned block")
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return err
}
