package holds

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"flightdesk/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// Every transition below runs as one Lua script, so Redis executes the
// check-and-set for a seat without interleaving other clients.

// KEYS[1] = seat claim key, KEYS[2] = expiry index, KEYS[3] = closed index, KEYS[4] = new record key
// ARGV: hold_id, flight_id, seat_no, owner, now_ms, expires_ms, catalog_available, record_prefix, state
const luaAcquire = `
local cur = redis.call("GET", KEYS[1])
if cur then
    local rec = ARGV[8] .. cur
    local st = redis.call("HGET", rec, "state")
    if st == "HELD" then
        local exp = tonumber(redis.call("HGET", rec, "expires_at"))
        if exp > tonumber(ARGV[5]) then
            return {0, "ALREADY_HELD"}
        end
        -- lapsed but not reclaimed yet: the seat stays taken until release
        return {0, "UNAVAILABLE"}
    elseif st == "CONSUMED" then
        return {0, "BOOKED"}
    end
end

if ARGV[7] ~= "1" then
    return {0, "UNAVAILABLE"}
end

redis.call("HSET", KEYS[4],
    "id", ARGV[1],
    "flight_id", ARGV[2],
    "seat_no", ARGV[3],
    "owner", ARGV[4],
    "state", ARGV[9],
    "created_at", ARGV[5],
    "expires_at", ARGV[6]
)
redis.call("SET", KEYS[1], ARGV[1])

if ARGV[9] == "HELD" then
    redis.call("ZADD", KEYS[2], ARGV[6], ARGV[1])
else
    redis.call("HSET", KEYS[4], "closed_at", ARGV[5])
    redis.call("ZADD", KEYS[3], ARGV[5], ARGV[1])
end

return {1, ARGV[1]}
`

// KEYS[1] = record key, KEYS[2] = expiry index, KEYS[3] = closed index
// ARGV: hold_id, now_ms
const luaConsume = `
local st = redis.call("HGET", KEYS[1], "state")
if not st then
    return {0, "NOT_FOUND"}
end
if st ~= "HELD" then
    return {0, st}
end

local exp = tonumber(redis.call("HGET", KEYS[1], "expires_at"))
if exp <= tonumber(ARGV[2]) then
    return {0, "LAPSED"}
end

redis.call("HSET", KEYS[1], "state", "CONSUMED", "closed_at", ARGV[2])
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[2], ARGV[1])
return {1, "CONSUMED"}
`

// KEYS[1] = record key, KEYS[2] = expiry index, KEYS[3] = closed index
// ARGV: hold_id, reason, now_ms
const luaRelease = `
local st = redis.call("HGET", KEYS[1], "state")
if not st then
    return {0, "NOT_FOUND"}
end
if st ~= "HELD" then
    return {2, st}
end

redis.call("HSET", KEYS[1], "state", ARGV[2], "closed_at", ARGV[3])
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[1])
return {1, ARGV[2]}
`

// KEYS[1] = closed index
// ARGV: cutoff_ms, record_prefix, seat_claim_prefix
const luaPurge = `
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
local purged = 0
for _, id in ipairs(ids) do
    local rec = ARGV[2] .. id
    local flight = redis.call("HGET", rec, "flight_id")
    local seat = redis.call("HGET", rec, "seat_no")
    local current = false
    if flight and seat then
        current = redis.call("GET", ARGV[3] .. flight .. ":" .. seat) == id
    end
    if not current then
        redis.call("DEL", rec)
        redis.call("ZREM", KEYS[1], id)
        purged = purged + 1
    end
end
return purged
`

var (
	acquireScript = redis.NewScript(luaAcquire)
	consumeScript = redis.NewScript(luaConsume)
	releaseScript = redis.NewScript(luaRelease)
	purgeScript   = redis.NewScript(luaPurge)
)

// RedisStore keeps holds in Redis: a hash per hold, a pointer from each seat
// to its most recent hold, and two sorted sets indexing HELD holds by expiry
// and terminal holds by close time.
//
// Catalog availability is read before the acquire script runs. The script
// re-checks the seat pointer and refuses while the current record is HELD
// (live or lapsed) or CONSUMED, so a stale "available" read can never grant a
// seat that another hold or booking still owns.
type RedisStore struct {
	redis     *redis.Client
	available AvailabilityFunc
	scanBatch int64
	opts      options
}

// NewRedisStore creates a Redis backed store. scanBatch bounds how many ids
// ScanExpired fetches per round trip.
func NewRedisStore(client *redis.Client, available AvailabilityFunc, scanBatch int, opts ...Option) *RedisStore {
	if scanBatch <= 0 {
		scanBatch = 100
	}
	return &RedisStore{
		redis:     client,
		available: available,
		scanBatch: int64(scanBatch),
		opts:      buildOptions(opts),
	}
}

// PreloadScripts loads Lua scripts into Redis so the first calls can use EVALSHA.
func (s *RedisStore) PreloadScripts(ctx context.Context) error {
	for name, script := range map[string]*redis.Script{
		"acquire": acquireScript,
		"consume": consumeScript,
		"release": releaseScript,
		"purge":   purgeScript,
	} {
		if err := script.Load(ctx, s.redis).Err(); err != nil {
			return fmt.Errorf("failed to load %s script: %w", name, err)
		}
	}
	return nil
}

func (s *RedisStore) TryAcquire(ctx context.Context, key Key, ttl time.Duration, owner string) (Hold, error) {
	if ttl <= 0 {
		return Hold{}, ErrInvalidTTL
	}
	return s.acquire(ctx, key, ttl, owner, StateHeld)
}

func (s *RedisStore) Claim(ctx context.Context, key Key, owner string) (Hold, error) {
	return s.acquire(ctx, key, 0, owner, StateConsumed)
}

func (s *RedisStore) acquire(ctx context.Context, key Key, ttl time.Duration, owner string, state State) (Hold, error) {
	ok, err := s.available(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return Hold{}, err
		}
		return Hold{}, fmt.Errorf("failed to check seat availability: %w", err)
	}

	now := s.opts.now().Truncate(time.Millisecond)
	hold := Hold{
		ID:        s.opts.newID(),
		FlightID:  key.FlightID,
		SeatNo:    key.SeatNo,
		Owner:     owner,
		State:     StateHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if state == StateConsumed {
		hold.close(StateConsumed, now)
	}

	availableArg := "0"
	if ok {
		availableArg = "1"
	}

	keys := []string{
		constants.BuildSeatClaimKey(key.FlightID, key.SeatNo),
		constants.KEY_HOLD_EXPIRY_INDEX,
		constants.KEY_HOLD_CLOSED_INDEX,
		constants.BuildHoldRecordKey(hold.ID),
	}
	args := []interface{}{
		hold.ID,
		key.FlightID,
		key.SeatNo,
		owner,
		now.UnixMilli(),
		hold.ExpiresAt.UnixMilli(),
		availableArg,
		constants.KEY_HOLD_RECORD,
		string(state),
	}

	flag, reason, err := runScript(ctx, s.redis, acquireScript, keys, args...)
	if err != nil {
		return Hold{}, fmt.Errorf("failed to execute atomic seat hold: %w", err)
	}
	if flag == 1 {
		return hold, nil
	}

	switch reason {
	case "ALREADY_HELD":
		return Hold{}, fmt.Errorf("%w: %s", ErrAlreadyHeld, key)
	case "BOOKED":
		return Hold{}, fmt.Errorf("%w: %s is booked", ErrSeatUnavailable, key)
	default:
		return Hold{}, fmt.Errorf("%w: %s", ErrSeatUnavailable, key)
	}
}

func (s *RedisStore) Consume(ctx context.Context, holdID string) (Hold, error) {
	now := s.opts.now()
	keys := []string{
		constants.BuildHoldRecordKey(holdID),
		constants.KEY_HOLD_EXPIRY_INDEX,
		constants.KEY_HOLD_CLOSED_INDEX,
	}

	flag, reason, err := runScript(ctx, s.redis, consumeScript, keys, holdID, now.UnixMilli())
	if err != nil {
		return Hold{}, fmt.Errorf("failed to execute atomic hold consume: %w", err)
	}
	if flag == 0 {
		switch reason {
		case "NOT_FOUND":
			return Hold{}, fmt.Errorf("%w: %s", ErrHoldNotFound, holdID)
		case string(StateConsumed):
			return Hold{}, fmt.Errorf("%w: %s", ErrHoldAlreadyConsumed, holdID)
		case string(StateExpired), "LAPSED":
			return Hold{}, fmt.Errorf("%w: %s", ErrHoldExpired, holdID)
		default:
			return Hold{}, fmt.Errorf("%w: %s was released", ErrHoldNotFound, holdID)
		}
	}

	return s.Get(ctx, holdID)
}

func (s *RedisStore) Release(ctx context.Context, holdID string, reason State) (Hold, bool, error) {
	if err := checkReason(reason); err != nil {
		return Hold{}, false, err
	}

	keys := []string{
		constants.BuildHoldRecordKey(holdID),
		constants.KEY_HOLD_EXPIRY_INDEX,
		constants.KEY_HOLD_CLOSED_INDEX,
	}
	flag, _, err := runScript(ctx, s.redis, releaseScript, keys, holdID, string(reason), s.opts.now().UnixMilli())
	if err != nil {
		return Hold{}, false, fmt.Errorf("failed to execute atomic hold release: %w", err)
	}
	if flag == 0 {
		return Hold{}, false, fmt.Errorf("%w: %s", ErrHoldNotFound, holdID)
	}

	hold, err := s.Get(ctx, holdID)
	if err != nil {
		return Hold{}, false, err
	}
	return hold, flag == 1, nil
}

func (s *RedisStore) ScanExpired(ctx context.Context, now time.Time) iter.Seq2[Hold, error] {
	return func(yield func(Hold, error) bool) {
		upper := strconv.FormatInt(now.UnixMilli(), 10)
		lower := "-inf"
		// ids already yielded whose score equals lower
		atMin := make(map[string]struct{})

		for {
			page, err := s.redis.ZRangeByScoreWithScores(ctx, constants.KEY_HOLD_EXPIRY_INDEX, &redis.ZRangeBy{
				Min:   lower,
				Max:   upper,
				Count: s.scanBatch + int64(len(atMin)),
			}).Result()
			if err != nil {
				yield(Hold{}, fmt.Errorf("failed to scan expiry index: %w", err))
				return
			}

			fresh := make([]redis.Z, 0, len(page))
			for _, z := range page {
				if _, seen := atMin[z.Member.(string)]; !seen {
					fresh = append(fresh, z)
				}
			}
			if len(fresh) == 0 {
				return
			}

			for _, z := range fresh {
				id := z.Member.(string)
				score := strconv.FormatInt(int64(z.Score), 10)
				if score != lower {
					lower = score
					clear(atMin)
				}
				atMin[id] = struct{}{}

				hold, err := s.Get(ctx, id)
				if errors.Is(err, ErrHoldNotFound) {
					continue
				}
				if err != nil {
					if !yield(Hold{}, err) {
						return
					}
					continue
				}
				if hold.Lapsed(now) && !yield(hold, nil) {
					return
				}
			}
		}
	}
}

func (s *RedisStore) Get(ctx context.Context, holdID string) (Hold, error) {
	fields, err := s.redis.HGetAll(ctx, constants.BuildHoldRecordKey(holdID)).Result()
	if err != nil {
		return Hold{}, fmt.Errorf("failed to load hold %s: %w", holdID, err)
	}
	if len(fields) == 0 {
		return Hold{}, fmt.Errorf("%w: %s", ErrHoldNotFound, holdID)
	}
	return parseHold(fields)
}

func (s *RedisStore) Current(ctx context.Context, key Key) (Hold, bool, error) {
	id, err := s.redis.Get(ctx, constants.BuildSeatClaimKey(key.FlightID, key.SeatNo)).Result()
	if errors.Is(err, redis.Nil) {
		return Hold{}, false, nil
	}
	if err != nil {
		return Hold{}, false, fmt.Errorf("failed to load seat claim %s: %w", key, err)
	}

	hold, err := s.Get(ctx, id)
	if errors.Is(err, ErrHoldNotFound) {
		return Hold{}, false, nil
	}
	if err != nil {
		return Hold{}, false, err
	}
	return hold, true, nil
}

func (s *RedisStore) Claims(ctx context.Context) iter.Seq2[Hold, error] {
	return func(yield func(Hold, error) bool) {
		it := s.redis.Scan(ctx, 0, constants.KEY_SEAT_CLAIM+"*", s.scanBatch).Iterator()
		for it.Next(ctx) {
			id, err := s.redis.Get(ctx, it.Val()).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if !yield(Hold{}, fmt.Errorf("failed to load seat claim: %w", err)) {
					return
				}
				continue
			}

			hold, err := s.Get(ctx, id)
			if errors.Is(err, ErrHoldNotFound) {
				continue
			}
			if err != nil {
				if !yield(Hold{}, err) {
					return
				}
				continue
			}
			if hold.State != StateHeld && hold.State != StateConsumed {
				continue
			}
			if !yield(hold, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Hold{}, fmt.Errorf("failed to scan seat claims: %w", err))
		}
	}
}

func (s *RedisStore) Purge(ctx context.Context, before time.Time) (int, error) {
	n, err := purgeScript.Run(ctx, s.redis,
		[]string{constants.KEY_HOLD_CLOSED_INDEX},
		before.UnixMilli(), constants.KEY_HOLD_RECORD, constants.KEY_SEAT_CLAIM,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to purge closed holds: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// runScript runs a script returning {flag, reason} and parses the reply.
func runScript(ctx context.Context, client *redis.Client, script *redis.Script, keys []string, args ...interface{}) (int64, string, error) {
	result, err := script.Run(ctx, client, keys, args...).Result()
	if err != nil {
		return 0, "", err
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return 0, "", fmt.Errorf("unexpected result format from Lua script")
	}
	flag, ok := resultArray[0].(int64)
	if !ok {
		return 0, "", fmt.Errorf("invalid success flag in Lua script result")
	}
	reason, _ := resultArray[1].(string)
	return flag, reason, nil
}

func parseHold(fields map[string]string) (Hold, error) {
	created, err := parseMillis(fields["created_at"])
	if err != nil {
		return Hold{}, fmt.Errorf("invalid created_at on hold %s: %w", fields["id"], err)
	}
	expires, err := parseMillis(fields["expires_at"])
	if err != nil {
		return Hold{}, fmt.Errorf("invalid expires_at on hold %s: %w", fields["id"], err)
	}

	hold := Hold{
		ID:        fields["id"],
		FlightID:  fields["flight_id"],
		SeatNo:    fields["seat_no"],
		Owner:     fields["owner"],
		State:     State(fields["state"]),
		CreatedAt: created,
		ExpiresAt: expires,
	}
	if !hold.State.IsValid() {
		return Hold{}, fmt.Errorf("invalid state %q on hold %s", fields["state"], hold.ID)
	}
	if raw, ok := fields["closed_at"]; ok {
		closed, err := parseMillis(raw)
		if err != nil {
			return Hold{}, fmt.Errorf("invalid closed_at on hold %s: %w", hold.ID, err)
		}
		hold.ClosedAt = &closed
	}
	return hold, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
