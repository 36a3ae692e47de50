package generate

// DefaultWords is used when no corpus is given.
var DefaultWords = []string{
	"apple", "banana", "cherry", "something", "something something", "is",
	"the", "best", "yellow", "green", "red", "blue", "orange", "fruit",
	"river", "mountain", "cloud", "rain", "sun", "moon", "star", "sky",
	"ocean", "island", "forest", "tree", "leaf", "root", "stone", "sand",
	"fire", "water", "earth", "air", "light", "dark", "quick", "brown",
	"fox", "jumps", "over", "lazy", "dog", "cat", "bird", "fish", "horse",
	"Apple", "Banana", "Zebra", "alpha", "beta", "gamma", "delta", "epsilon",
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "file", "line", "sort", "merge", "segment", "record", "tag",
	"text", "order", "a.b", "v1.2", "e.g.", "naïve", "café", "über",
}
