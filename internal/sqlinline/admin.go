package sqlinline

// Administrative bulk operations. These are plain non-atomic updates and are
// deliberately outside the ledger's concurrency contract.

const QListAccounts = `--sql 0eb01684-f5be-4f5b-9236-0e5da777c6d7
select id, first_name, username, image_credits, video_credits,
       language, image_aspect_ratio, video_aspect_ratio, plan, created_at
from accounts
order by created_at desc
limit $1;
`

const QResetAllCredits = `--sql 28f5b207-52e5-49e2-872b-647275b07acb
update accounts set image_credits = $1, video_credits = $2;
`

const QResetAccountCredits = `--sql 2ccedbe1-9d46-49a6-8e1d-efd1fcdcc363
update accounts set image_credits = $2, video_credits = $3 where id = $1;
`

const QDeleteAccount = `--sql 5265b363-e529-4fd7-bd0b-3183252f5fa7
delete from accounts where id = $1;
`

const QStatsSummary = `--sql 1f57808c-e9cd-4436-887a-1a09e820df4b
select count(*) as total_accounts,
       coalesce(sum(image_credits), 0) as image_credits_outstanding,
       coalesce(sum(video_credits), 0) as video_credits_outstanding,
       count(*) filter (where created_at > now() - interval '24 hours') as new_last_24h
from accounts;
`
