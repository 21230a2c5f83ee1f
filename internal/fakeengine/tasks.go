package fakeengine

import (
	"encoding/json"

	"github.com/DoyleJ11/llm-among-us/internal/game"
)

type testCase struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
}

type taskDef struct {
	game.Task
	cases []testCase
}

func tc(in, want string) testCase {
	return testCase{Input: json.RawMessage(in), Expected: json.RawMessage(want)}
}

// One task per round; a game never plays more than game.MaxRounds.
var tasks = []taskDef{
	{
		Task: game.Task{
			ID:           "two-sum",
			Title:        "Two Sum",
			FunctionName: "two_sum",
			Description:  "Return the indices of the two numbers in nums that add up to target.",
			Examples:     []game.Example{{Input: "nums=[2,7,11,15], target=9", Output: "[0,1]"}},
		},
		cases: []testCase{
			tc(`[[2,7,11,15],9]`, `[0,1]`),
			tc(`[[3,2,4],6]`, `[1,2]`),
			tc(`[[3,3],6]`, `[0,1]`),
			tc(`[[1,5,9],14]`, `[1,2]`),
			tc(`[[0,4,3,0],0]`, `[0,3]`),
		},
	},
	{
		Task: game.Task{
			ID:           "palindrome",
			Title:        "Valid Palindrome",
			FunctionName: "is_palindrome",
			Description:  "Return true if s reads the same backwards, ignoring case and non-alphanumerics.",
			Examples:     []game.Example{{Input: `s="A man, a plan, a canal: Panama"`, Output: "true"}},
		},
		cases: []testCase{
			tc(`["A man, a plan, a canal: Panama"]`, `true`),
			tc(`["race a car"]`, `false`),
			tc(`[" "]`, `true`),
			tc(`["No lemon, no melon"]`, `true`),
			tc(`["ab"]`, `false`),
		},
	},
	{
		Task: game.Task{
			ID:           "fizzbuzz",
			Title:        "FizzBuzz",
			FunctionName: "fizzbuzz",
			Description:  "Return the FizzBuzz strings for 1..n.",
			Examples:     []game.Example{{Input: "n=5", Output: `["1","2","Fizz","4","Buzz"]`}},
		},
		cases: []testCase{
			tc(`[1]`, `["1"]`),
			tc(`[3]`, `["1","2","Fizz"]`),
			tc(`[5]`, `["1","2","Fizz","4","Buzz"]`),
			tc(`[0]`, `[]`),
			tc(`[2]`, `["1","2"]`),
		},
	},
	{
		Task: game.Task{
			ID:           "max-subarray",
			Title:        "Maximum Subarray",
			FunctionName: "max_subarray",
			Description:  "Return the largest sum of any contiguous non-empty subarray.",
			Examples:     []game.Example{{Input: "nums=[-2,1,-3,4,-1,2,1,-5,4]", Output: "6"}},
		},
		cases: []testCase{
			tc(`[[-2,1,-3,4,-1,2,1,-5,4]]`, `6`),
			tc(`[[1]]`, `1`),
			tc(`[[5,4,-1,7,8]]`, `23`),
			tc(`[[-3,-1,-2]]`, `-1`),
			tc(`[[2,-1,2]]`, `3`),
		},
	},
	{
		Task: game.Task{
			ID:           "valid-parens",
			Title:        "Valid Parentheses",
			FunctionName: "is_valid",
			Description:  "Return true if every bracket in s is closed by the same type in the right order.",
			Examples:     []game.Example{{Input: `s="()[]{}"`, Output: "true"}},
		},
		cases: []testCase{
			tc(`["()"]`, `true`),
			tc(`["()[]{}"]`, `true`),
			tc(`["(]"]`, `false`),
			tc(`["([)]"]`, `false`),
			tc(`["{[]}"]`, `true`),
		},
	},
}

func taskFor(round int) taskDef {
	return tasks[(round-1)%len(tasks)]
}

func (d taskDef) wire() game.Task {
	t := d.Task
	t.Examples = append([]game.Example(nil), d.Examples...)
	t.TestCases, _ = json.Marshal(d.cases)
	return t
}
