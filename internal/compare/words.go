package compare

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"fknsrs.biz/p/ytmetrics/models"
)

const DefaultTopN = 30

type WordCount struct {
	Word  string
	Count int
}

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		について とは する ある いる なる れる この その あの どの これ それ あれ どれ
		こと もの ため ところ よう こちら そちら あちら どちら さん くん ちゃん さま 様
		で を の が に と へ から まで より や 私 僕 俺 君 です ます
		# @ ! ！ ? ？ … ・ ... 「 」 【 】 （ ） ( ) 〜 : ： ; ； , 、 . 。 / ／
		〈 〉 《 》 = ＝ + ＋ - ー * ＊ x × | ｜
		日 月 年 週 時間 分 秒 時 今回 前回 方法 どんな みたい たい てる
	`) {
		stopwords[w] = true
	}
}

// counter keeps first-seen order so that ties rank stably.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(w string) {
	if _, ok := c.counts[w]; !ok {
		c.order = append(c.order, w)
	}
	c.counts[w]++
}

func (c *counter) top(n int) []WordCount {
	if n <= 0 {
		n = DefaultTopN
	}

	r := make([]WordCount, len(c.order))
	for i, w := range c.order {
		r[i] = WordCount{Word: w, Count: c.counts[w]}
	}

	sort.SliceStable(r, func(i, j int) bool { return r[i].Count > r[j].Count })

	if len(r) > n {
		r = r[:n]
	}

	return r
}

// TopTags counts tags across videos, case-insensitively, ignoring tags
// shorter than two characters and common filler words. n defaults to 30.
func TopTags(videos []models.FormattedVideo, n int) []WordCount {
	c := newCounter()

	for _, v := range videos {
		for _, tag := range v.RawTags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if utf8.RuneCountInString(tag) < 2 || stopwords[tag] {
				continue
			}
			c.add(tag)
		}
	}

	return c.top(n)
}

var titleSeparators = regexp.MustCompile(`[【】「」『』（）［］{}\[\]()!！?？…・.。,:：;；\s]+`)

// TitleKeywords splits titles on brackets, punctuation and whitespace and
// counts the resulting words. Words keep their original case.
func TitleKeywords(videos []models.FormattedVideo, n int) []WordCount {
	c := newCounter()

	for _, v := range videos {
		for _, w := range strings.Fields(titleSeparators.ReplaceAllString(v.Title, " ")) {
			if utf8.RuneCountInString(w) < 2 || stopwords[strings.ToLower(w)] {
				continue
			}
			c.add(w)
		}
	}

	return c.top(n)
}
