package service

import (
	"context"
	"strconv"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/repository"
	"speakopoly_backend/internal/scoring"
	"speakopoly_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardKey = "leaderboard:xp"

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank    int            `json:"rank"`
	UserID  uint           `json:"userId"`
	Name    string         `json:"name"`
	TotalXP int            `json:"totalXp"`
	League  scoring.League `json:"league"`
}

// Leaderboard 排行榜与当前用户名次
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
	MyRank  int                `json:"myRank"`
	MyXP    int                `json:"myXp"`
	Source  string             `json:"source"`
}

// LeaderboardService Redis 有序集合维护总经验排名，Redis 不可用时回退数据库
type LeaderboardService struct {
	Redis       *redis.Client
	ProfileRepo *repository.ProfileRepository
	UserRepo    *repository.UserRepository
}

func NewLeaderboardService(rdb *redis.Client, profileRepo *repository.ProfileRepository, userRepo *repository.UserRepository) *LeaderboardService {
	return &LeaderboardService{Redis: rdb, ProfileRepo: profileRepo, UserRepo: userRepo}
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// RankUpdater 在 XP 变动提交后刷新排行榜
type RankUpdater interface {
	Update(ctx context.Context, userID uint, totalXP int)
}

// Update 写入用户最新总经验
func (s *LeaderboardService) Update(ctx context.Context, userID uint, totalXP int) {
	if s == nil || s.Redis == nil {
		return
	}
	if err := s.Redis.ZAdd(ctx, leaderboardKey, &redis.Z{Score: float64(totalXP), Member: member(userID)}).Err(); err != nil {
		logger.Log.Warn("Failed to update leaderboard", zap.Uint("userID", userID), zap.Error(err))
	}
}

// Rebuild 从数据库全量重建有序集合
func (s *LeaderboardService) Rebuild(ctx context.Context) (int, error) {
	if s.Redis == nil {
		return 0, nil
	}
	tmpKey := leaderboardKey + ":rebuild"
	count := 0
	s.Redis.Del(ctx, tmpKey)
	err := s.ProfileRepo.ScanXP(500, func(batch []model.Profile) error {
		if len(batch) == 0 {
			return nil
		}
		members := make([]*redis.Z, 0, len(batch))
		for _, p := range batch {
			members = append(members, &redis.Z{Score: float64(p.TotalXP), Member: member(p.UserID)})
		}
		count += len(members)
		return s.Redis.ZAdd(ctx, tmpKey, members...).Err()
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, s.Redis.Del(ctx, leaderboardKey).Err()
	}

	pipe := s.Redis.TxPipeline()
	pipe.Rename(ctx, tmpKey, leaderboardKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// Top 前 limit 名及 userID 的名次
func (s *LeaderboardService) Top(ctx context.Context, userID uint, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = 50
	}
	if s.Redis != nil {
		board, err := s.topFromRedis(ctx, userID, limit)
		if err == nil {
			return board, nil
		}
		logger.Log.Warn("Leaderboard cache unavailable, falling back to database", zap.Error(err))
	}
	return s.topFromDB(userID, limit)
}

func (s *LeaderboardService) topFromRedis(ctx context.Context, userID uint, limit int) (*Leaderboard, error) {
	zs, err := s.Redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(zs))
	for _, z := range zs {
		id, err := strconv.ParseUint(z.Member.(string), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	names, err := s.UserRepo.FindNamesByIDs(ids)
	if err != nil {
		return nil, err
	}

	board := &Leaderboard{Entries: make([]LeaderboardEntry, 0, len(zs)), Source: "redis"}
	for i, z := range zs {
		id, err := strconv.ParseUint(z.Member.(string), 10, 64)
		if err != nil {
			continue
		}
		xp := int(z.Score)
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:    i + 1,
			UserID:  uint(id),
			Name:    names[uint(id)],
			TotalXP: xp,
			League:  scoring.LeagueFor(xp),
		})
	}

	rank, err := s.Redis.ZRevRank(ctx, leaderboardKey, member(userID)).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return nil, err
	default:
		board.MyRank = int(rank) + 1
		score, err := s.Redis.ZScore(ctx, leaderboardKey, member(userID)).Result()
		if err == nil {
			board.MyXP = int(score)
		}
	}
	return board, nil
}

func (s *LeaderboardService) topFromDB(userID uint, limit int) (*Leaderboard, error) {
	profiles, err := s.ProfileRepo.FindTopByXP(limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	names, err := s.UserRepo.FindNamesByIDs(ids)
	if err != nil {
		return nil, err
	}

	board := &Leaderboard{Entries: make([]LeaderboardEntry, 0, len(profiles)), Source: "database"}
	for i, p := range profiles {
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:    i + 1,
			UserID:  p.UserID,
			Name:    names[p.UserID],
			TotalXP: p.TotalXP,
			League:  scoring.LeagueFor(p.TotalXP),
		})
	}

	me, err := s.ProfileRepo.FindByUserID(userID)
	if err == nil {
		ahead, err := s.ProfileRepo.CountAhead(me.TotalXP)
		if err != nil {
			return nil, err
		}
		board.MyRank = int(ahead) + 1
		board.MyXP = me.TotalXP
	}
	return board, nil
}
