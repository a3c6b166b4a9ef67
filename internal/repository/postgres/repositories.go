package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	LocalUsers  *LocalUserRepository
	SocialUsers *SocialUserRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(exec pgExecutor) *Repositories {
	return &Repositories{
		LocalUsers:  NewLocalUserRepository(exec),
		SocialUsers: NewSocialUserRepository(exec),
	}
}
