package redisstore

import "github.com/redis/go-redis/v9"

// Script status codes.
const (
	statusNotFound  int64 = 0
	statusOK        int64 = 1
	statusDuplicate int64 = -1
)

// KEYS: email index, account hash. ARGV: id, email, record.
const createAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -1
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2], "email", ARGV[2], "data", ARGV[3])
return 1
`

var createAccountLua = redis.NewScript(createAccountScript)

// KEYS: account hash. ARGV: id, new email, record, email key prefix.
const updateAccountScript = `
local old = redis.call("HGET", KEYS[1], "email")
if not old then
  return 0
end
if old ~= ARGV[2] then
  local newKey = ARGV[4] .. ARGV[2]
  if redis.call("EXISTS", newKey) == 1 then
    return -1
  end
  redis.call("DEL", ARGV[4] .. old)
  redis.call("SET", newKey, ARGV[1])
end
redis.call("HSET", KEYS[1], "email", ARGV[2], "data", ARGV[3])
return 1
`

var updateAccountLua = redis.NewScript(updateAccountScript)

// KEYS: account hash, token list. ARGV: email key prefix.
const deleteAccountScript = `
local email = redis.call("HGET", KEYS[1], "email")
if not email then
  return 0
end
redis.call("DEL", ARGV[1] .. email, KEYS[1], KEYS[2])
return 1
`

var deleteAccountLua = redis.NewScript(deleteAccountScript)

// KEYS: account hash, token list. ARGV: token record.
const appendTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`

var appendTokenLua = redis.NewScript(appendTokenScript)

// KEYS: owner account hash, task key, owner task set. ARGV: task id, record.
const createTaskScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

var createTaskLua = redis.NewScript(createTaskScript)

// KEYS: task key, owner task set. ARGV: task id.
const deleteTaskScript = `
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 0 then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`

var deleteTaskLua = redis.NewScript(deleteTaskScript)

// KEYS: owner task set. ARGV: task key prefix. Returns the number of tasks removed.
const deleteTasksByOwnerScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
for _, id in ipairs(ids) do
  redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return #ids
`

var deleteTasksByOwnerLua = redis.NewScript(deleteTasksByOwnerScript)

// KEYS: account hash, token list, owner task set. ARGV: email key prefix,
// task key prefix. Returns -1 when the account is missing, otherwise the
// number of tasks removed.
const cascadeDeleteScript = `
local email = redis.call("HGET", KEYS[1], "email")
if not email then
  return -1
end
local ids = redis.call("SMEMBERS", KEYS[3])
for _, id in ipairs(ids) do
  redis.call("DEL", ARGV[2] .. id)
end
redis.call("DEL", KEYS[3], KEYS[2], KEYS[1], ARGV[1] .. email)
return #ids
`

var cascadeDeleteLua = redis.NewScript(cascadeDeleteScript)
