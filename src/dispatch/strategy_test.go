package dispatch

import (
	"context"
	"testing"

	"github.com/coe-labs/coe-agent/src/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicPicksBestTokenOverlap(t *testing.T) {
	candidates := []Candidate{
		{Kind: session.KindCapability, Name: "get_server_time", Description: "서버의 현재 시간을 반환합니다"},
		{Kind: session.KindCapability, Name: "calculate_international_age", Description: "생년월일 기준 만 나이 계산"},
	}

	pick, err := Heuristic{}.Pick(context.Background(), "생년월일로 만 나이 계산해줘", candidates)
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Equal(t, "calculate_international_age", pick.Name)
}

func TestHeuristicDeclinesWithoutOverlap(t *testing.T) {
	candidates := []Candidate{
		{Name: "get_server_time", Description: "서버의 현재 시간을 반환합니다"},
	}

	pick, err := Heuristic{}.Pick(context.Background(), "오늘 점심 메뉴 추천", candidates)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestHeuristicDeclinesOnEmptyInput(t *testing.T) {
	pick, err := Heuristic{}.Pick(context.Background(), "", []Candidate{{Name: "x", Description: "y"}})
	require.NoError(t, err)
	assert.Nil(t, pick)

	pick, err = Heuristic{}.Pick(context.Background(), "무엇이든", nil)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestHeuristicTieGoesToFirstRegistered(t *testing.T) {
	candidates := []Candidate{
		{Name: "first_tool", Description: "시간 조회"},
		{Name: "second_tool", Description: "시간 조회"},
	}

	pick, err := Heuristic{}.Pick(context.Background(), "시간 조회 부탁해", candidates)
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Equal(t, "first_tool", pick.Name)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := tokenize("A 시간, time! 1")
	assert.Equal(t, []string{"시간", "time"}, got)
}
