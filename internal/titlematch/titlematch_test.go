package titlematch

import (
	"math"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"【独家】进击的巨人", "进击的巨人"},
		{"進擊的巨人：最終季", "进击的巨人 最终季"},
		{"间谍过家家（仅限港澳台地区）", "间谍过家家"},
		{"Ｓｐｙ×Ｆａｍｉｌｙ", "spy family"},
		{"  Hello,   World!! ", "hello world"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarityIdentityAndSymmetry(t *testing.T) {
	titles := []string{"进击的巨人", "Attack on Titan", "鬼灭之刃 游郭篇", "a", "間諜家家酒", "【独家】", "!!!", "（）"}
	for _, a := range titles {
		if got := Similarity(a, a); got != 1 {
			t.Fatalf("Similarity(%q, %q) = %v, want 1", a, a, got)
		}
		for _, b := range titles {
			if ab, ba := Similarity(a, b), Similarity(b, a); ab != ba {
				t.Fatalf("asymmetric similarity %q/%q: %v vs %v", a, b, ab, ba)
			}
		}
	}
}

func TestSimilarityBareTitlesOnlyMatchThemselves(t *testing.T) {
	if got := Similarity("【独家】", "！！！"); got != 0 {
		t.Fatalf("distinct bare titles scored %v, want 0", got)
	}
	if got := Similarity("!!!", "！！！"); got != 1 {
		t.Fatalf("width-folded punctuation scored %v, want 1", got)
	}
	if got := Similarity("", ""); got != 0 {
		t.Fatalf("empty titles scored %v, want 0", got)
	}
}

func TestSimilaritySubstringAndEmpty(t *testing.T) {
	got := Similarity("进击的巨人", "进击的巨人 最终季")
	want := 0.8 + 0.2*5.0/9.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("substring similarity = %v, want %v", got, want)
	}
	if got >= 1 {
		t.Fatal("substring similarity must stay below exact match")
	}
	if Similarity("", "abc") != 0 {
		t.Fatal("expected empty title to score 0")
	}
}

func TestSimilarityNonIncreasingWithDistance(t *testing.T) {
	base := []rune("abcdefghij")
	replacements := []rune("qrstuvwxyz")
	prev := 1.0
	for k := 0; k <= len(base); k++ {
		mutated := append([]rune(nil), base...)
		for i := 0; i < k; i++ {
			mutated[i] = replacements[i]
		}
		score := Similarity(string(base), string(mutated))
		if score > prev+1e-12 {
			t.Fatalf("similarity increased at distance %d: %v > %v", k, score, prev)
		}
		prev = score
	}
}

func TestExtractSeasonMarkers(t *testing.T) {
	tests := []struct {
		title, kind string
		want        string
	}{
		{"进击的巨人 第二季", "", "{S2}"},
		{"进击的巨人 第1季", "", "{}"},
		{"Attack on Titan Season 3 Part 2", "", "{P2,S3}"},
		{"Show S02P01", "", "{P1,S2}"},
		{"Overlord II", "", "{S2}"},
		{"某科学的超电磁炮3", "", "{S3}"},
		{"进击的巨人 最终季", "", "{SFINAL}"},
		{"名侦探柯南 剧场版", "", "{MOVIE}"},
		{"Show OVA", "", "{OVA}"},
		{"Show 特别篇", "", "{SP}"},
		{"Show 续篇", "", "{SEQUEL}"},
		{"Show", "综艺", "{VARIETY}"},
		{"Show", "纪录片", "{DOCUMENTARY}"},
		{"Show", "电影", "{MOVIE}"},
		{"Show", "TV动画", "{}"},
		{"第十二期", "", "{S12}"},
	}
	for _, tt := range tests {
		if got := ExtractSeasonMarkers(tt.title, tt.kind).String(); got != tt.want {
			t.Fatalf("ExtractSeasonMarkers(%q, %q) = %s, want %s", tt.title, tt.kind, got, tt.want)
		}
	}
}

func TestMediaTypeMismatch(t *testing.T) {
	tests := []struct {
		name           string
		titleA, titleB string
		typeA, typeB   string
		countA, countB int
		want           bool
	}{
		{"movie vs series", "Show 剧场版", "Show", "", "TV动画", 1, 24, true},
		{"movie cut vs short series", "Show 剧场版", "Show", "", "TV动画", 1, 4, false},
		{"unknown counts", "Show 剧场版", "Show", "", "TV动画", 0, 12, true},
		{"ambiguous side", "Show", "Show 剧场版", "", "", 12, 1, false},
		{"both series", "Show", "Show", "TV", "番剧", 12, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MediaTypeMismatch(tt.titleA, tt.titleB, tt.typeA, tt.typeB, tt.countA, tt.countB)
			if got != tt.want {
				t.Fatalf("MediaTypeMismatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeasonMismatch(t *testing.T) {
	tests := []struct {
		name           string
		titleA, titleB string
		want           bool
	}{
		{"no markers", "Show", "Show", false},
		{"one side marked", "Show 第二季", "Show", true},
		{"same season different notation", "Show 第二季", "Show Season 2", false},
		{"different seasons", "Show 第二季", "Show 第三季", true},
		{"season vs special", "Show 第二季", "Show OVA", true},
		{"shared type token", "Show OVA", "Show OVA 特别篇", false},
		{"disjoint type tokens", "Show OVA", "Show 剧场版", true},
		{"overlap of multi-season", "Show S2 Season 3", "Show 第三季", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeasonMismatch(tt.titleA, tt.titleB, "", ""); got != tt.want {
				t.Fatalf("SeasonMismatch(%q, %q) = %v, want %v", tt.titleA, tt.titleB, got, tt.want)
			}
		})
	}
}

func TestSameAndExactSeason(t *testing.T) {
	if !SameSeason("Show 第二季", "Show Season 2", "", "") {
		t.Fatal("expected same season")
	}
	if SameSeason("Show", "Show", "", "") {
		t.Fatal("unmarked titles do not confirm a season")
	}
	if !ExactSeason("Show S2", "Show 第二季", "", "") {
		t.Fatal("expected exact season")
	}
	if ExactSeason("Show S2 Season 3", "Show 第三季", "", "") {
		t.Fatal("expected differing season sets to be inexact")
	}
}

func TestStripParentheticals(t *testing.T) {
	got := StripParentheticals("间谍过家家（中配版）[1080P]")
	if strings.Contains(got, "中配") || strings.Contains(got, "1080") {
		t.Fatalf("expected annotations stripped, got %q", got)
	}
	if Similarity(got, "间谍过家家") != 1 {
		t.Fatalf("expected stripped title to match, got %q", got)
	}
}
